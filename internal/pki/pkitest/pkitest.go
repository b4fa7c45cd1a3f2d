// Package pkitest issues throwaway certificate hierarchies for tests.
package pkitest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Authority is a root CA plus one intermediate.
type Authority struct {
	Root            *x509.Certificate
	RootKey         crypto.Signer
	Intermediate    *x509.Certificate
	IntermediateKey crypto.Signer
	serial          int64
}

// Identity is a leaf certificate issued by the intermediate.
type Identity struct {
	Cert  *x509.Certificate
	Key   crypto.Signer
	Chain [][]byte
}

// NewAuthority builds a fresh root and intermediate.
func NewAuthority(t testing.TB) *Authority {
	t.Helper()
	a := &Authority{serial: 1}

	rootKey := newKey(t)
	rootTmpl := a.template("Test Root", true)
	a.Root, a.RootKey = a.sign(t, rootTmpl, rootTmpl, rootKey, rootKey), rootKey

	interKey := newKey(t)
	a.Intermediate = a.sign(t, a.template("Test Intermediate", true), a.Root, interKey, rootKey)
	a.IntermediateKey = interKey
	return a
}

// Pool returns a pool holding only the root.
func (a *Authority) Pool() *x509.CertPool {
	p := x509.NewCertPool()
	p.AddCert(a.Root)
	return p
}

// Issue creates a leaf for cn signed by the intermediate.
func (a *Authority) Issue(t testing.TB, cn string) *Identity {
	t.Helper()
	key := newKey(t)
	cert := a.sign(t, a.template(cn, false), a.Intermediate, key, a.IntermediateKey)
	return &Identity{Cert: cert, Key: key, Chain: [][]byte{a.Intermediate.Raw}}
}

// SelfSigned creates a leaf nobody vouches for.
func SelfSigned(t testing.TB, cn string) *Identity {
	t.Helper()
	a := &Authority{serial: 100}
	key := newKey(t)
	tmpl := a.template(cn, false)
	cert := a.sign(t, tmpl, tmpl, key, key)
	return &Identity{Cert: cert, Key: key}
}

// WriteFiles stores root, leaf, chain and key as PEM files in dir and
// returns their paths.
func (a *Authority) WriteFiles(t testing.TB, dir string, id *Identity) (rootPath, certPath, chainPath, keyPath string) {
	t.Helper()
	rootPath = writePEM(t, filepath.Join(dir, "root.pem"), "CERTIFICATE", a.Root.Raw)
	certPath = writePEM(t, filepath.Join(dir, "cert.pem"), "CERTIFICATE", id.Cert.Raw)
	chainPath = writePEM(t, filepath.Join(dir, "chain.pem"), "CERTIFICATE", id.Chain...)
	der, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPath = writePEM(t, filepath.Join(dir, "key.pem"), "PRIVATE KEY", der)
	return rootPath, certPath, chainPath, keyPath
}

func (a *Authority) template(cn string, ca bool) *x509.Certificate {
	a.serial++
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(a.serial),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  ca,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if ca {
		tmpl.KeyUsage |= x509.KeyUsageCertSign
	}
	return tmpl
}

func (a *Authority) sign(t testing.TB, tmpl, parent *x509.Certificate, key, parentKey crypto.Signer) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, key.Public(), parentKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func newKey(t testing.TB) crypto.Signer {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return k
}

func writePEM(t testing.TB, path, typ string, blocks ...[]byte) string {
	t.Helper()
	var out []byte
	for _, b := range blocks {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: b})...)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
