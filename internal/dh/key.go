package dh

import (
	"fmt"
	"io"
	"math/big"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

type PublicKey struct {
	Params *Parameters
	Y      *big.Int
}

type PrivateKey struct {
	PublicKey
	X *big.Int
}

// GenerateKey picks a private exponent in [2, Q-1], or [2, P-2] when the
// subgroup order is unknown.
func GenerateKey(r io.Reader, params *Parameters) (*PrivateKey, error) {
	limit := params.Q
	if limit == nil {
		limit = new(big.Int).Sub(params.P, one)
	}
	// x = 2 + rand[0, limit-2)
	span := new(big.Int).Sub(limit, two)
	x, err := randInt(r, span)
	if err != nil {
		return nil, fmt.Errorf("generate private exponent: %w", err)
	}
	x.Add(x, two)

	y := new(big.Int).Exp(params.G, x, params.P)
	return &PrivateKey{PublicKey: PublicKey{Params: params, Y: y}, X: x}, nil
}

// Validate rejects public values outside [2, P-2] and, when Q is known,
// values outside the prime-order subgroup.
func (k *PublicKey) Validate() error {
	if k == nil || k.Y == nil || k.Params == nil {
		return fmt.Errorf("%w: empty public key", common.ErrKeyExchange)
	}
	pMinus1 := new(big.Int).Sub(k.Params.P, one)
	if k.Y.Cmp(two) < 0 || k.Y.Cmp(pMinus1) >= 0 {
		return fmt.Errorf("%w: public value out of range", common.ErrKeyExchange)
	}
	if k.Params.Q != nil && new(big.Int).Exp(k.Y, k.Params.Q, k.Params.P).Cmp(one) != 0 {
		return fmt.Errorf("%w: public value outside the prime-order subgroup", common.ErrKeyExchange)
	}
	return nil
}

// SharedSecret computes peer^x mod P, left-padded to the byte length of P,
// so both sides derive byte-identical secrets.
func SharedSecret(priv *PrivateKey, peer *PublicKey) ([]byte, error) {
	if priv == nil || priv.X == nil {
		return nil, fmt.Errorf("%w: missing private key", common.ErrKeyExchange)
	}
	if !priv.Params.Equal(peer.Params) {
		return nil, fmt.Errorf("%w: group mismatch", common.ErrKeyExchange)
	}
	if err := peer.Validate(); err != nil {
		return nil, err
	}

	z := new(big.Int).Exp(peer.Y, priv.X, priv.Params.P)
	pMinus1 := new(big.Int).Sub(priv.Params.P, one)
	if z.Cmp(one) <= 0 || z.Cmp(pMinus1) == 0 {
		return nil, fmt.Errorf("%w: degenerate shared secret", common.ErrKeyExchange)
	}
	return z.FillBytes(make([]byte, priv.Params.Size())), nil
}
