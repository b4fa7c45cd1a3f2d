// Package pki validates the certificates presented at registration and the
// signatures made with their keys.
package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

// Validator verifies certificate chains against a fixed set of roots.
type Validator struct {
	roots *x509.CertPool
	now   func() time.Time
}

// NewValidator returns a Validator trusting roots.
func NewValidator(roots *x509.CertPool) *Validator {
	return &Validator{roots: roots, now: time.Now}
}

// LoadRoots reads a PEM bundle of trust anchors. An empty path falls back
// to the system pool.
func LoadRoots(path string) (*x509.CertPool, error) {
	if path == "" {
		return x509.SystemCertPool()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roots: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// Verify parses the DER leaf and intermediates and checks that the leaf
// chains to a trusted root. Every failure wraps common.ErrInvalidCertificate.
func (v *Validator) Verify(leafDER []byte, chainDER [][]byte) (*x509.Certificate, error) {
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCertificate, err)
	}

	intermediates := x509.NewCertPool()
	for i, der := range chainDER {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%w: chain[%d]: %v", common.ErrInvalidCertificate, i, err)
		}
		intermediates.AddCert(c)
	}

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		CurrentTime:   v.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCertificate, err)
	}
	return leaf, nil
}

// ParseCertificate accepts DER or a single PEM "CERTIFICATE" block.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCertificate, err)
	}
	return cert, nil
}

// VerifySignature checks signature over message with the certificate key.
// RSA keys use PKCS #1 v1.5 over SHA-256, ECDSA keys ASN.1 signatures over
// SHA-256, Ed25519 keys sign the message itself.
func VerifySignature(cert *x509.Certificate, message, signature []byte) error {
	digest := sha256.Sum256(message)

	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest[:], signature) {
			return common.ErrInvalidSignature
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(pub, message, signature) {
			return common.ErrInvalidSignature
		}
	default:
		return fmt.Errorf("%w: unsupported key type %T", common.ErrInvalidSignature, cert.PublicKey)
	}
	return nil
}

// Sign produces a signature VerifySignature accepts for the matching
// certificate.
func Sign(signer crypto.Signer, message []byte) ([]byte, error) {
	if _, ok := signer.Public().(ed25519.PublicKey); ok {
		return signer.Sign(rand.Reader, message, crypto.Hash(0))
	}
	digest := sha256.Sum256(message)
	return signer.Sign(rand.Reader, digest[:], crypto.SHA256)
}

// LoadSigner reads a PKCS #8, PKCS #1 or SEC 1 private key from a PEM file.
func LoadSigner(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}

	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%s: key type %T cannot sign", path, key)
	}
	return signer, nil
}

// LoadCertificates reads every CERTIFICATE block of a PEM file as DER.
func LoadCertificates(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			out = append(out, block.Bytes)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no certificates", path)
	}
	return out, nil
}

// CredentialMessage is the byte string signed at registration (username
// followed by the password) and at authentication (username followed by
// the password digest).
func CredentialMessage(username string, secret []byte) []byte {
	msg := make([]byte, 0, len(username)+len(secret))
	msg = append(msg, username...)
	return append(msg, secret...)
}
