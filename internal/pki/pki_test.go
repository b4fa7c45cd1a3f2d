package pki

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/pki/pkitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ChainToRoot(t *testing.T) {
	ca := pkitest.NewAuthority(t)
	id := ca.Issue(t, "alice")
	v := NewValidator(ca.Pool())

	leaf, err := v.Verify(id.Cert.Raw, id.Chain)
	require.NoError(t, err)
	assert.Equal(t, "alice", leaf.Subject.CommonName)
}

func TestVerify_Failures(t *testing.T) {
	ca := pkitest.NewAuthority(t)
	id := ca.Issue(t, "alice")
	v := NewValidator(ca.Pool())

	t.Run("missing intermediate", func(t *testing.T) {
		_, err := v.Verify(id.Cert.Raw, nil)
		assert.ErrorIs(t, err, common.ErrInvalidCertificate)
	})

	t.Run("self signed", func(t *testing.T) {
		self := pkitest.SelfSigned(t, "mallory")
		_, err := v.Verify(self.Cert.Raw, nil)
		assert.ErrorIs(t, err, common.ErrInvalidCertificate)
	})

	t.Run("other authority", func(t *testing.T) {
		other := pkitest.NewAuthority(t).Issue(t, "eve")
		_, err := v.Verify(other.Cert.Raw, other.Chain)
		assert.ErrorIs(t, err, common.ErrInvalidCertificate)
	})

	t.Run("garbage leaf", func(t *testing.T) {
		_, err := v.Verify([]byte("nope"), nil)
		assert.ErrorIs(t, err, common.ErrInvalidCertificate)
	})

	t.Run("garbage chain", func(t *testing.T) {
		_, err := v.Verify(id.Cert.Raw, [][]byte{[]byte("nope")})
		assert.ErrorIs(t, err, common.ErrInvalidCertificate)
	})
}

func TestSignAndVerify_ECDSA(t *testing.T) {
	id := pkitest.NewAuthority(t).Issue(t, "alice")
	msg := []byte("alice" + "secret")

	sig, err := Sign(id.Key, msg)
	require.NoError(t, err)
	require.NoError(t, VerifySignature(id.Cert, msg, sig))

	err = VerifySignature(id.Cert, []byte("alice"+"other"), sig)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestSignAndVerify_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cert := &x509.Certificate{PublicKey: &key.PublicKey}

	sig, err := Sign(key, []byte("m"))
	require.NoError(t, err)
	require.NoError(t, VerifySignature(cert, []byte("m"), sig))
	assert.ErrorIs(t, VerifySignature(cert, []byte("x"), sig), common.ErrInvalidSignature)
}

func TestSignAndVerify_Ed25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	cert := &x509.Certificate{PublicKey: pub}

	sig, err := Sign(priv, []byte("m"))
	require.NoError(t, err)
	require.NoError(t, VerifySignature(cert, []byte("m"), sig))
	assert.ErrorIs(t, VerifySignature(cert, []byte("x"), sig), common.ErrInvalidSignature)
}

func TestVerifySignature_UnsupportedKey(t *testing.T) {
	cert := &x509.Certificate{PublicKey: "not a key"}
	assert.ErrorIs(t, VerifySignature(cert, []byte("m"), []byte("s")), common.ErrInvalidSignature)
}

func TestLoadFiles(t *testing.T) {
	ca := pkitest.NewAuthority(t)
	id := ca.Issue(t, "alice")
	rootPath, certPath, chainPath, keyPath := ca.WriteFiles(t, t.TempDir(), id)

	pool, err := LoadRoots(rootPath)
	require.NoError(t, err)

	certs, err := LoadCertificates(certPath)
	require.NoError(t, err)
	require.Len(t, certs, 1)

	chain, err := LoadCertificates(chainPath)
	require.NoError(t, err)

	_, err = NewValidator(pool).Verify(certs[0], chain)
	require.NoError(t, err)

	signer, err := LoadSigner(keyPath)
	require.NoError(t, err)
	sig, err := Sign(signer, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, VerifySignature(id.Cert, []byte("hello"), sig))
}

func TestParseCertificate_PEMAndDER(t *testing.T) {
	id := pkitest.NewAuthority(t).Issue(t, "alice")

	c, err := ParseCertificate(id.Cert.Raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Subject.CommonName)

	c, err = ParseCertificate(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.Cert.Raw}))
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Subject.CommonName)

	_, err = ParseCertificate([]byte("x"))
	assert.ErrorIs(t, err, common.ErrInvalidCertificate)
}
