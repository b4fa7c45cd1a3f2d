// Package dh implements finite-field Diffie-Hellman over safe-prime groups:
// domain parameters, per-session key pairs, shared secret computation and
// the PEM encodings exchanged with clients.
package dh

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
)

// MinPrimeBits is the smallest modulus accepted from a parameters file.
const MinPrimeBits = 512

// rfc3526Group14 is the 2048-bit MODP group from RFC 3526, section 3.
const rfc3526Group14 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	ErrInvalidParameters = errors.New("invalid DH parameters")

	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Parameters is a DH group. Q, when set, is the prime order of the subgroup
// generated by G and enables the subgroup check on peer keys.
type Parameters struct {
	P *big.Int
	G *big.Int
	Q *big.Int
}

// Group14 returns the RFC 3526 2048-bit group with generator 2.
func Group14() *Parameters {
	p, _ := new(big.Int).SetString(rfc3526Group14, 16)
	q := new(big.Int).Rsh(p, 1)
	return &Parameters{P: p, G: big.NewInt(2), Q: q}
}

// Generate searches for a safe prime p = 2q+1 of the given size with
// p ≡ 7 (mod 8), so that 2 generates the order-q subgroup.
func Generate(r io.Reader, bits int) (*Parameters, error) {
	if bits < MinPrimeBits {
		return nil, fmt.Errorf("%w: %d bits is below the %d bit minimum", ErrInvalidParameters, bits, MinPrimeBits)
	}
	eight := big.NewInt(8)
	seven := big.NewInt(7)
	for {
		q, err := rand.Prime(r, bits-1)
		if err != nil {
			return nil, err
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if p.BitLen() != bits || new(big.Int).Mod(p, eight).Cmp(seven) != 0 {
			continue
		}
		if !p.ProbablyPrime(20) {
			continue
		}
		return &Parameters{P: p, G: big.NewInt(2), Q: q}, nil
	}
}

// Validate checks that P is a prime of acceptable size and that G lies in
// [2, P-2]. A Q that does not match P and G is dropped rather than trusted.
func (p *Parameters) Validate() error {
	if p == nil || p.P == nil || p.G == nil {
		return fmt.Errorf("%w: missing prime or generator", ErrInvalidParameters)
	}
	if p.P.BitLen() < MinPrimeBits {
		return fmt.Errorf("%w: prime is %d bits, need at least %d", ErrInvalidParameters, p.P.BitLen(), MinPrimeBits)
	}
	if !p.P.ProbablyPrime(20) {
		return fmt.Errorf("%w: modulus is not prime", ErrInvalidParameters)
	}
	pMinus1 := new(big.Int).Sub(p.P, one)
	if p.G.Cmp(two) < 0 || p.G.Cmp(pMinus1) >= 0 {
		return fmt.Errorf("%w: generator out of range", ErrInvalidParameters)
	}
	if p.Q != nil && new(big.Int).Exp(p.G, p.Q, p.P).Cmp(one) != 0 {
		p.Q = nil
	}
	return nil
}

// deriveSubgroup fills Q for safe-prime groups loaded from PEM, which does
// not carry the subgroup order.
func (p *Parameters) deriveSubgroup() {
	q := new(big.Int).Rsh(p.P, 1)
	if !q.ProbablyPrime(20) {
		return
	}
	if new(big.Int).Exp(p.G, q, p.P).Cmp(one) != 0 {
		return
	}
	p.Q = q
}

// Equal reports whether both groups share prime and generator.
func (p *Parameters) Equal(o *Parameters) bool {
	if p == nil || o == nil {
		return false
	}
	return p.P.Cmp(o.P) == 0 && p.G.Cmp(o.G) == 0
}

// Size is the byte length of the prime, which is also the length of every
// shared secret computed in this group.
func (p *Parameters) Size() int {
	return (p.P.BitLen() + 7) / 8
}

// LoadOrGenerate reads PEM parameters from path. When the file does not
// exist it is created, holding freshly generated parameters of the given
// size, or Group14 when bits is zero. created reports which branch ran.
func LoadOrGenerate(path string, r io.Reader, bits int) (params *Parameters, created bool, err error) {
	data, err := os.ReadFile(path)
	if err == nil {
		params, err = DecodeParameters(data)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", path, err)
		}
		return params, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	if bits == 0 {
		params = Group14()
	} else {
		params, err = Generate(r, bits)
		if err != nil {
			return nil, false, err
		}
	}

	encoded, err := EncodeParameters(params)
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, false, err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return nil, false, err
	}
	return params, true, nil
}

func randInt(r io.Reader, max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("%w: group too small", ErrInvalidParameters)
	}
	return rand.Int(r, max)
}
