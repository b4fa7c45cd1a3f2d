package dh

import (
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

const (
	pemTypeParameters = "DH PARAMETERS"
	pemTypePublicKey  = "PUBLIC KEY"
)

// oidDHKeyAgreement is dhKeyAgreement from PKCS #3.
var oidDHKeyAgreement = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 3, 1}

// dhParameter is the PKCS #3 DHParameter structure.
type dhParameter struct {
	P                  *big.Int
	G                  *big.Int
	PrivateValueLength int `asn1:"optional"`
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters dhParameter
}

type subjectPublicKeyInfo struct {
	Algorithm algorithmIdentifier
	PublicKey asn1.BitString
}

// EncodeParameters renders params as a PKCS #3 "DH PARAMETERS" PEM block.
func EncodeParameters(params *Parameters) ([]byte, error) {
	der, err := asn1.Marshal(dhParameter{P: params.P, G: params.G})
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeParameters, Bytes: der}), nil
}

// DecodeParameters parses and validates a "DH PARAMETERS" PEM block.
func DecodeParameters(data []byte) (*Parameters, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeParameters {
		return nil, fmt.Errorf("%w: no %q PEM block", ErrInvalidParameters, pemTypeParameters)
	}
	var raw dhParameter
	rest, err := asn1.Unmarshal(block.Bytes, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidParameters)
	}
	params := &Parameters{P: raw.P, G: raw.G}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.deriveSubgroup()
	return params, nil
}

// MarshalPublicKey renders pub as a SubjectPublicKeyInfo "PUBLIC KEY" PEM
// block carrying the group parameters.
func MarshalPublicKey(pub *PublicKey) ([]byte, error) {
	y, err := asn1.Marshal(pub.Y)
	if err != nil {
		return nil, fmt.Errorf("marshal public value: %w", err)
	}
	spki := subjectPublicKeyInfo{
		Algorithm: algorithmIdentifier{
			Algorithm:  oidDHKeyAgreement,
			Parameters: dhParameter{P: pub.Params.P, G: pub.Params.G},
		},
		PublicKey: asn1.BitString{Bytes: y, BitLength: len(y) * 8},
	}
	der, err := asn1.Marshal(spki)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der}), nil
}

// ParsePublicKey decodes a peer public key and checks it belongs to params.
// Any failure is reported as common.ErrKeyExchange.
func ParsePublicKey(data []byte, params *Parameters) (*PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublicKey {
		return nil, fmt.Errorf("%w: no %q PEM block", common.ErrKeyExchange, pemTypePublicKey)
	}
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(block.Bytes, &spki)
	if err != nil || len(rest) > 0 {
		return nil, fmt.Errorf("%w: malformed public key", common.ErrKeyExchange)
	}
	if !spki.Algorithm.Algorithm.Equal(oidDHKeyAgreement) {
		return nil, fmt.Errorf("%w: unexpected algorithm %v", common.ErrKeyExchange, spki.Algorithm.Algorithm)
	}
	peerParams := &Parameters{P: spki.Algorithm.Parameters.P, G: spki.Algorithm.Parameters.G}
	if !params.Equal(peerParams) {
		return nil, fmt.Errorf("%w: public key uses different group parameters", common.ErrKeyExchange)
	}
	y := new(big.Int)
	rest, err = asn1.Unmarshal(spki.PublicKey.RightAlign(), &y)
	if err != nil || len(rest) > 0 {
		return nil, fmt.Errorf("%w: malformed public value", common.ErrKeyExchange)
	}
	pub := &PublicKey{Params: params, Y: y}
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	return pub, nil
}
