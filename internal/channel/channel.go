// Package channel seals and opens payloads exchanged over an established
// session. Keys are derived per message from the session secret, the
// negotiated suite and an optional binding tag (for example a chunk index),
// and every ciphertext travels with a digest-based integrity code (MIC).
package channel

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"golang.org/x/crypto/hkdf"
)

// kdfLabel versions the key derivation so both sides agree on the layout of
// the HKDF info string.
const kdfLabel = "gophstream channel v1"

// Channel binds a shared secret to a negotiated suite. The zero suite means
// negotiation has not happened yet and every operation fails with
// common.ErrSuiteNotNegotiated.
type Channel struct {
	secret []byte
	suite  *suite.Suite
}

// New returns a Channel over secret. s may be nil.
func New(secret []byte, s *suite.Suite) *Channel {
	return &Channel{secret: secret, suite: s}
}

// Suite returns the negotiated suite or nil.
func (c *Channel) Suite() *suite.Suite {
	return c.suite
}

// Seal encrypts plaintext under a key bound to tag and returns the
// ciphertext (IV followed by the encrypted body) together with its MIC.
func (c *Channel) Seal(plaintext []byte, tag string) (ciphertext, mic []byte, err error) {
	if c.suite == nil {
		return nil, nil, common.ErrSuiteNotNegotiated
	}

	key, err := c.deriveKey(tag)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(key)

	block, err := c.suite.Cipher.NewBlock(key)
	if err != nil {
		return nil, nil, err
	}

	bs := block.BlockSize()
	iv := make([]byte, bs)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("iv: %w", err)
	}

	var body []byte
	switch c.suite.Mode {
	case suite.CBC:
		body = pkcs7Pad(plaintext, bs)
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, body)
	case suite.OFB:
		body = make([]byte, len(plaintext))
		cipher.NewOFB(block, iv).XORKeyStream(body, plaintext)
	default:
		return nil, nil, fmt.Errorf("%w: mode %q", common.ErrUnsupportedSuite, c.suite.Mode)
	}

	ciphertext = append(iv, body...)
	mic, err = c.suite.Digest.Sum(ciphertext)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, mic, nil
}

// Open verifies mic over ciphertext in constant time and only then
// decrypts. A MIC mismatch or a malformed ciphertext yields
// common.ErrIntegrity and no plaintext.
func (c *Channel) Open(ciphertext, mic []byte, tag string) ([]byte, error) {
	if c.suite == nil {
		return nil, common.ErrSuiteNotNegotiated
	}

	expected, err := c.suite.Digest.Sum(ciphertext)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(expected, mic) != 1 {
		return nil, fmt.Errorf("%w: MIC mismatch", common.ErrIntegrity)
	}

	key, err := c.deriveKey(tag)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	block, err := c.suite.Cipher.NewBlock(key)
	if err != nil {
		return nil, err
	}

	bs := block.BlockSize()
	if len(ciphertext) < bs {
		return nil, fmt.Errorf("%w: ciphertext shorter than IV", common.ErrIntegrity)
	}
	iv, body := ciphertext[:bs], ciphertext[bs:]

	switch c.suite.Mode {
	case suite.CBC:
		if len(body) == 0 || len(body)%bs != 0 {
			return nil, fmt.Errorf("%w: ciphertext is not block aligned", common.ErrIntegrity)
		}
		plain := make([]byte, len(body))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
		return pkcs7Unpad(plain, bs)
	case suite.OFB:
		plain := make([]byte, len(body))
		cipher.NewOFB(block, iv).XORKeyStream(plain, body)
		return plain, nil
	default:
		return nil, fmt.Errorf("%w: mode %q", common.ErrUnsupportedSuite, c.suite.Mode)
	}
}

// SealJSON marshals v and seals the result.
func (c *Channel) SealJSON(v any, tag string) (ciphertext, mic []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(plaintext)
	return c.Seal(plaintext, tag)
}

// OpenJSON opens a sealed message and unmarshals it into v.
func (c *Channel) OpenJSON(ciphertext, mic []byte, tag string, v any) error {
	plaintext, err := c.Open(ciphertext, mic, tag)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	return nil
}

// deriveKey runs HKDF-SHA256 over the session secret with the suite and
// binding tag in the info string.
func (c *Channel) deriveKey(tag string) ([]byte, error) {
	var info bytes.Buffer
	info.WriteString(kdfLabel)
	info.WriteByte('|')
	info.WriteString(c.suite.String())
	info.WriteByte('|')
	info.WriteString(tag)

	key := make([]byte, c.suite.Cipher.KeySize())
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: cipher %q", common.ErrUnsupportedSuite, c.suite.Cipher)
	}
	kdf := hkdf.New(sha256.New, c.secret, nil, info.Bytes())
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Encode renders a sealed message in wire form: base64 body and base64 MIC
// header value.
func Encode(ciphertext, mic []byte) (body []byte, micHeader string) {
	body = make([]byte, base64.StdEncoding.EncodedLen(len(ciphertext)))
	base64.StdEncoding.Encode(body, ciphertext)
	return body, base64.StdEncoding.EncodeToString(mic)
}

// Decode is the inverse of Encode. Undecodable input is an integrity failure.
func Decode(body []byte, micHeader string) (ciphertext, mic []byte, err error) {
	ciphertext = make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(ciphertext, bytes.TrimSpace(body))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: body is not base64", common.ErrIntegrity)
	}
	mic, err = base64.StdEncoding.DecodeString(micHeader)
	if err != nil || len(mic) == 0 {
		return nil, nil, fmt.Errorf("%w: missing or malformed MIC", common.ErrIntegrity)
	}
	return ciphertext[:n], mic, nil
}
