package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/pki"
	"github.com/dmitrijs2005/gophstream/internal/pki/pkitest"
	"github.com/dmitrijs2005/gophstream/internal/server/assets"
	"github.com/dmitrijs2005/gophstream/internal/server/catalog"
	"github.com/dmitrijs2005/gophstream/internal/server/gateway"
	"github.com/dmitrijs2005/gophstream/internal/server/httpapi"
	"github.com/dmitrijs2005/gophstream/internal/server/licenses"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aesSuite = suite.Suite{Cipher: suite.AES, Digest: suite.SHA512, Mode: suite.CBC}

type testServer struct {
	url    string
	ca     *pkitest.Authority
	ledger *licenses.Ledger
	media  []byte
	item   catalog.Item
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	nop := logging.NewNopLogger()

	cat := catalog.Default()
	item := cat.Items()[0]

	dir := t.TempDir()
	media := make([]byte, item.FileSize)
	_, err := rand.Read(media)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, item.FileName), media, 0o600))

	ca := pkitest.NewAuthority(t)
	ss := sessions.NewStore(0, 0, nop)
	ledger := licenses.NewLedger(licenses.NewMemoryStore(), pki.NewValidator(ca.Pool()), licenses.DefaultViews, 5*time.Minute, nop)
	m := metrics.New(ss.Len)

	gw, err := gateway.New(dh.Group14(), ss, ledger, cat, assets.NewFileSource(dir), m, nop)
	require.NoError(t, err)

	srv := httptest.NewServer(httpapi.NewHTTPServer("", nop, gw, m).Handler())
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, ca: ca, ledger: ledger, media: media, item: item}
}

func newTestClient(url string, transport http.RoundTripper) *Client {
	return New(Options{
		BaseURL:      url,
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
		Transport:    transport,
	})
}

func TestEndToEnd_DefaultTrack(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	alice := ts.ca.Issue(t, "alice")
	id := &Identity{Certificate: alice.Cert.Raw, Chain: alice.Chain, Signer: alice.Key}

	reg := newTestClient(ts.url, nil)
	require.NoError(t, reg.Handshake(ctx, aesSuite))
	lic, err := reg.Register(ctx, "alice", []byte("s3cret"), id)
	require.NoError(t, err)
	assert.Equal(t, licenses.DefaultViews, lic.ViewsRemaining)
	assert.True(t, lic.Valid)

	c := newTestClient(ts.url, nil)
	require.NoError(t, c.Handshake(ctx, suite.Suite{Cipher: suite.TripleDES, Digest: suite.BLAKE2, Mode: suite.OFB}))
	lic, err = c.Authenticate(ctx, "alice", []byte("s3cret"), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", lic.Username)

	items, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ts.item.ID, items[0].ID)
	assert.Equal(t, int64(832), items[0].Chunks)

	first, err := c.Download(ctx, ts.item.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, ts.media[:catalog.ChunkSize], first.Data)

	stored, err := ts.ledger.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ViewsRemaining)

	last, err := c.Download(ctx, ts.item.ID, 831)
	require.NoError(t, err)
	assert.Equal(t, ts.media[831*catalog.ChunkSize:], last.Data)

	_, err = c.Download(ctx, ts.item.ID, 832)
	assert.ErrorIs(t, err, common.ErrInvalidChunkIndex)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.HTTPStatus(common.ErrInvalidChunkIndex), apiErr.Status)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.SessionID())
	_, err = c.List(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDownloadRange_StopsWhenViewsRunOut(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	bob := ts.ca.Issue(t, "bob")

	c := newTestClient(ts.url, nil)
	require.NoError(t, c.Handshake(ctx, aesSuite))
	_, err := c.Register(ctx, "bob", []byte("pw"), &Identity{Certificate: bob.Cert.Raw, Chain: bob.Chain, Signer: bob.Key})
	require.NoError(t, err)

	var buf bytes.Buffer
	var seen []int64
	n, err := c.DownloadRange(ctx, ts.item.ID, 0, 10, &buf, func(i int64) { seen = append(seen, i) })
	assert.ErrorIs(t, err, common.ErrLicenseInvalid)
	assert.Equal(t, int64(licenses.DefaultViews), n)
	assert.Equal(t, []int64{0, 1, 2, 3}, seen)
	assert.Equal(t, ts.media[:licenses.DefaultViews*catalog.ChunkSize], buf.Bytes())

	lic, err := c.Renew(ctx)
	require.NoError(t, err)
	assert.Equal(t, licenses.DefaultViews, lic.ViewsRemaining)
}

func TestRegister_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	carol := ts.ca.Issue(t, "carol")
	id := &Identity{Certificate: carol.Cert.Raw, Chain: carol.Chain, Signer: carol.Key}

	c := newTestClient(ts.url, nil)

	_, err := c.Register(ctx, "carol", []byte("pw"), id)
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	_, err = c.Register(ctx, "carol", []byte("pw"), id)
	assert.ErrorIs(t, err, ErrNotNegotiated)

	require.NoError(t, c.Negotiate(ctx, aesSuite))
	_, err = c.Register(ctx, "carol", []byte("pw"), id)
	require.NoError(t, err)

	_, err = c.Register(ctx, "carol", []byte("pw"), id)
	assert.ErrorIs(t, err, common.ErrUsernameTaken)

	stranger := pkitest.SelfSigned(t, "mallory")
	_, err = c.Register(ctx, "mallory", []byte("pw"), &Identity{Certificate: stranger.Cert.Raw, Chain: stranger.Chain, Signer: stranger.Key})
	assert.ErrorIs(t, err, common.ErrInvalidCertificate)

	_, err = c.Register(ctx, "x", nil, nil)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	dave := ts.ca.Issue(t, "dave")
	id := &Identity{Certificate: dave.Cert.Raw, Chain: dave.Chain, Signer: dave.Key}

	c := newTestClient(ts.url, nil)
	require.NoError(t, c.Handshake(ctx, aesSuite))
	_, err := c.Register(ctx, "dave", []byte("right"), id)
	require.NoError(t, err)

	c2 := newTestClient(ts.url, nil)
	require.NoError(t, c2.Handshake(ctx, aesSuite))
	_, err = c2.Authenticate(ctx, "dave", []byte("wrong"), id)
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = c2.Authenticate(ctx, "nobody", []byte("right"), id)
	assert.Error(t, err)
}

func TestNegotiate_Rejections(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := newTestClient(ts.url, nil)
	assert.ErrorIs(t, c.Negotiate(ctx, aesSuite), ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	err := c.Negotiate(ctx, suite.Suite{Cipher: "RC4", Digest: suite.SHA512, Mode: suite.CBC})
	assert.ErrorIs(t, err, common.ErrUnsupportedSuite)
	assert.Nil(t, c.Suite())
}

func TestProtocols(t *testing.T) {
	ts := newTestServer(t)

	cat, err := newTestClient(ts.url, nil).Protocols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, suite.Supported(), cat)
}

// tamperTransport flips one byte of every sealed response body.
type tamperTransport struct{}

func (tamperTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil || resp.Header.Get(common.MICHeaderName) == "" {
		return resp, err
	}
	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	return resp, nil
}

func TestList_TamperedResponseFailsIntegrity(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := newTestClient(ts.url, tamperTransport{})
	require.NoError(t, c.Handshake(ctx, aesSuite))

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestTransportUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(url, nil)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, common.ErrTransportUnavailable)
}

func TestAPIError(t *testing.T) {
	err := &APIError{Status: http.StatusNotFound, Code: common.CodeMediaNotFound, Message: "media not found"}
	assert.ErrorIs(t, err, common.ErrMediaNotFound)
	assert.True(t, strings.Contains(err.Error(), "media_not_found"))

	unknown := apiError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	var apiErr *APIError
	require.True(t, errors.As(unknown, &apiErr))
	assert.Equal(t, common.CodeInternal, apiErr.Code)
	assert.ErrorIs(t, unknown, common.ErrorInternal)
}

func TestLoadIdentity(t *testing.T) {
	ca := pkitest.NewAuthority(t)
	erin := ca.Issue(t, "erin")
	_, certPath, chainPath, keyPath := ca.WriteFiles(t, t.TempDir(), erin)

	id, err := LoadIdentity(certPath, keyPath, chainPath)
	require.NoError(t, err)
	assert.Equal(t, erin.Cert.Raw, id.Certificate)
	assert.Len(t, id.Chain, len(erin.Chain))

	_, err = LoadIdentity(filepath.Join(t.TempDir(), "missing.pem"), keyPath, "")
	assert.Error(t, err)
}
