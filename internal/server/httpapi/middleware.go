package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
)

var knownRoutes = map[string]struct{}{
	api.PathParameters: {},
	api.PathProtocols:  {},
	api.PathPublicKey:  {},
	api.PathSuite:      {},
	api.PathRegister:   {},
	api.PathAuth:       {},
	api.PathRenew:      {},
	api.PathLogout:     {},
	api.PathList:       {},
	api.PathDownload:   {},
	api.PathMetrics:    {},
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request and counts it per route. m may be nil.
func LoggingMiddleware(logger logging.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if _, ok := knownRoutes[route]; !ok {
			route = "other"
		}
		m.Request(route, wrapped.statusCode)

		logger.Info(r.Context(), "HTTP request completed",
			"uri", r.RequestURI,
			"method", r.Method,
			"status", wrapped.statusCode,
			"remote", r.RemoteAddr,
			"latency_ms", time.Since(start).Round(time.Millisecond).Milliseconds(),
		)
	})
}
