// Package suite enumerates the cipher, digest and mode combinations a client
// may negotiate for its session, and provides the primitives behind each name.
package suite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"golang.org/x/crypto/blake2b"
)

type Cipher string

type Digest string

type Mode string

const (
	AES       Cipher = "AES"
	TripleDES Cipher = "3DES"

	SHA512 Digest = "SHA512"
	BLAKE2 Digest = "BLAKE2"

	CBC Mode = "CBC"
	OFB Mode = "OFB"
)

var (
	ciphers = []Cipher{AES, TripleDES}
	digests = []Digest{SHA512, BLAKE2}
	modes   = []Mode{CBC, OFB}
)

// Catalog is the set of algorithms the server offers. Its JSON form is the
// body of the protocols endpoint.
type Catalog struct {
	Ciphers []Cipher `json:"cipher"`
	Digests []Digest `json:"digests"`
	Modes   []Mode   `json:"cipher_mode"`
}

// Supported returns a fresh copy of the server catalog.
func Supported() Catalog {
	return Catalog{
		Ciphers: append([]Cipher(nil), ciphers...),
		Digests: append([]Digest(nil), digests...),
		Modes:   append([]Mode(nil), modes...),
	}
}

// Suite is one negotiated combination.
type Suite struct {
	Cipher Cipher `json:"cipher"`
	Digest Digest `json:"digest"`
	Mode   Mode   `json:"cipher_mode"`
}

// Parse builds a Suite from raw names and validates it.
func Parse(cipherName, digestName, modeName string) (Suite, error) {
	s := Suite{Cipher: Cipher(cipherName), Digest: Digest(digestName), Mode: Mode(modeName)}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

// All lists every combination in the catalog.
func All() []Suite {
	out := make([]Suite, 0, len(ciphers)*len(digests)*len(modes))
	for _, c := range ciphers {
		for _, d := range digests {
			for _, m := range modes {
				out = append(out, Suite{Cipher: c, Digest: d, Mode: m})
			}
		}
	}
	return out
}

// Digests lists every digest algorithm in the catalog.
func Digests() []Digest {
	return append([]Digest(nil), digests...)
}

// Validate rejects any field outside the catalog. Unknown values are never
// replaced with a default.
func (s Suite) Validate() error {
	if !s.Cipher.Valid() {
		return fmt.Errorf("%w: cipher %q", common.ErrUnsupportedSuite, s.Cipher)
	}
	if !s.Digest.Valid() {
		return fmt.Errorf("%w: digest %q", common.ErrUnsupportedSuite, s.Digest)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", common.ErrUnsupportedSuite, s.Mode)
	}
	return nil
}

func (s Suite) String() string {
	return string(s.Cipher) + "-" + string(s.Digest) + "-" + string(s.Mode)
}

func (c Cipher) Valid() bool {
	for _, v := range ciphers {
		if v == c {
			return true
		}
	}
	return false
}

// KeySize is the key length in bytes: AES-256 or three-key 3DES.
func (c Cipher) KeySize() int {
	switch c {
	case AES:
		return 32
	case TripleDES:
		return 24
	default:
		return 0
	}
}

// NewBlock returns the block cipher keyed with key.
func (c Cipher) NewBlock(key []byte) (cipher.Block, error) {
	switch c {
	case AES:
		return aes.NewCipher(key)
	case TripleDES:
		return des.NewTripleDESCipher(key)
	default:
		return nil, fmt.Errorf("%w: cipher %q", common.ErrUnsupportedSuite, c)
	}
}

func (d Digest) Valid() bool {
	for _, v := range digests {
		if v == d {
			return true
		}
	}
	return false
}

// New returns a fresh hash for d, or nil if d is not in the catalog.
func (d Digest) New() hash.Hash {
	switch d {
	case SHA512:
		return sha512.New()
	case BLAKE2:
		h, _ := blake2b.New512(nil)
		return h
	default:
		return nil
	}
}

// Sum digests data in one shot.
func (d Digest) Sum(data []byte) ([]byte, error) {
	h := d.New()
	if h == nil {
		return nil, fmt.Errorf("%w: digest %q", common.ErrUnsupportedSuite, d)
	}
	h.Write(data)
	return h.Sum(nil), nil
}

func (m Mode) Valid() bool {
	for _, v := range modes {
		if v == m {
			return true
		}
	}
	return false
}
