package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
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
	"github.com/dmitrijs2005/gophstream/internal/server/licenses"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, logger logging.Logger) (*HTTPServer, *httptest.Server) {
	t.Helper()
	nop := logging.NewNopLogger()
	store := sessions.NewStore(0, 0, nop)
	ledger := licenses.NewLedger(licenses.NewMemoryStore(), pki.NewValidator(pkitest.NewAuthority(t).Pool()), 0, 0, nop)
	m := metrics.New(store.Len)

	gw, err := gateway.New(dh.Group14(), store, ledger, catalog.Default(), assets.NewFileSource(t.TempDir()), m, nop)
	require.NoError(t, err)

	s := NewHTTPServer("127.0.0.1:0", logger, gw, m)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestParametersAndProtocols(t *testing.T) {
	_, ts := newServer(t, logging.NewNopLogger())

	resp, err := http.Get(ts.URL + api.PathParameters)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pr api.ParametersResponse
	decodeBody(t, resp, &pr)
	params, err := dh.DecodeParameters([]byte(pr.Parameters))
	require.NoError(t, err)
	assert.True(t, params.Equal(dh.Group14()))

	resp, err = http.Get(ts.URL + api.PathProtocols)
	require.NoError(t, err)
	var raw map[string][]string
	decodeBody(t, resp, &raw)
	assert.ElementsMatch(t, []string{"AES", "3DES"}, raw["cipher"])
	assert.ElementsMatch(t, []string{"SHA512", "BLAKE2"}, raw["digests"])
	assert.ElementsMatch(t, []string{"CBC", "OFB"}, raw["cipher_mode"])
}

func TestPublicKeyAndSuite(t *testing.T) {
	_, ts := newServer(t, logging.NewNopLogger())

	resp, err := http.Post(ts.URL+api.PathPublicKey, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var er api.ErrorResponse
	decodeBody(t, resp, &er)
	assert.Equal(t, common.CodeBadRequest, er.Error)

	priv, err := dh.GenerateKey(rand.Reader, dh.Group14())
	require.NoError(t, err)
	pub, err := dh.MarshalPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	body, _ := json.Marshal(api.PublicKeyMessage{PublicKey: string(pub)})

	resp, err = http.Post(ts.URL+api.PathPublicKey, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sid := resp.Header.Get(common.SessionIDHeaderName)
	assert.NotEmpty(t, sid)
	var pk api.PublicKeyMessage
	decodeBody(t, resp, &pk)
	_, err = dh.ParsePublicKey([]byte(pk.PublicKey), dh.Group14())
	require.NoError(t, err)

	post := func(s suite.Suite, id string) *http.Response {
		b, _ := json.Marshal(s)
		req, _ := http.NewRequest(http.MethodPost, ts.URL+api.PathSuite, bytes.NewReader(b))
		req.Header.Set(common.SessionIDHeaderName, id)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp = post(suite.Suite{Cipher: suite.AES, Digest: suite.SHA512, Mode: suite.OFB}, sid)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = post(suite.Suite{Cipher: "DES", Digest: suite.SHA512, Mode: suite.OFB}, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeBody(t, resp, &er)
	assert.Equal(t, common.CodeUnsupportedSuite, er.Error)

	resp = post(suite.Suite{Cipher: suite.AES, Digest: suite.SHA512, Mode: suite.OFB}, "bogus")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesWithoutSession(t *testing.T) {
	_, ts := newServer(t, logging.NewNopLogger())

	for _, path := range []string{api.PathList, api.PathDownload + "?id=x&chunk=0"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Empty(t, resp.Header.Get(common.MICHeaderName))
		var er api.ErrorResponse
		decodeBody(t, resp, &er)
		assert.Equal(t, common.CodeSessionNotFound, er.Error)
	}

	resp, err := http.Post(ts.URL+api.PathRegister, "text/plain", strings.NewReader("AAAA"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+api.PathList, "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newServer(t, logging.NewNopLogger())

	resp, err := http.Get(ts.URL + api.PathParameters)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + api.PathMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `gophstream_http_requests_total{route="/api/parameters",status="200"} 1`)
}

type entry struct {
	msg  string
	args []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (l *recordingLogger) Debug(context.Context, string, ...any) {}
func (l *recordingLogger) Info(_ context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{msg: msg, args: args})
}
func (l *recordingLogger) Warn(context.Context, string, ...any)  {}
func (l *recordingLogger) Error(context.Context, string, ...any) {}
func (l *recordingLogger) With(...any) logging.Logger            { return l }

func TestLoggingMiddleware(t *testing.T) {
	rec := &recordingLogger{}
	h := LoggingMiddleware(rec, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/list?x=1", nil))

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "HTTP request completed", e.msg)

	fields := map[string]any{}
	for i := 0; i+1 < len(e.args); i += 2 {
		fields[e.args[i].(string)] = e.args[i+1]
	}
	assert.Equal(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "/api/list?x=1", fields["uri"])
	assert.Equal(t, http.MethodGet, fields["method"])
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, _ := newServer(t, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	s, _ := newServer(t, logging.NewNopLogger())
	s.address = "127.0.0.1:99999"

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
