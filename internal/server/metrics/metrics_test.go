package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(func() int { return 3 })

	m.Handshake(true)
	m.Handshake(true)
	m.Handshake(false)
	m.ChunkServed("abc")
	m.LicenseRejected("license_invalid")
	m.Request("/api/list", http.StatusOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.handshakes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handshakes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunksServed.WithLabelValues("abc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.licenseRejections.WithLabelValues("license_invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/list", "200")))
}

func TestHandler(t *testing.T) {
	m := New(func() int { return 7 })
	m.ChunkServed("abc")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "gophstream_sessions 7"), text)
	assert.True(t, strings.Contains(text, `gophstream_chunks_served_total{media_id="abc"} 1`), text)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Handshake(true)
	m.ChunkServed("x")
	m.LicenseRejected("x")
	m.Request("/", 200)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
