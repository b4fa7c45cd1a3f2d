package client

import (
	"crypto"

	"github.com/dmitrijs2005/gophstream/internal/pki"
)

// Identity is the certificate and key a user signs credentials with.
type Identity struct {
	Certificate []byte
	Chain       [][]byte
	Signer      crypto.Signer
}

// LoadIdentity reads the leaf certificate, its private key and an optional
// chain of intermediates from PEM files.
func LoadIdentity(certPath, keyPath, chainPath string) (*Identity, error) {
	certs, err := pki.LoadCertificates(certPath)
	if err != nil {
		return nil, err
	}
	signer, err := pki.LoadSigner(keyPath)
	if err != nil {
		return nil, err
	}

	id := &Identity{Certificate: certs[0], Chain: certs[1:], Signer: signer}
	if chainPath != "" {
		chain, err := pki.LoadCertificates(chainPath)
		if err != nil {
			return nil, err
		}
		id.Chain = append(id.Chain, chain...)
	}
	return id, nil
}
