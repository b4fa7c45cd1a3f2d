// Package httpapi exposes the gateway over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/gateway"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address string
	gateway *gateway.Gateway
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, gw *gateway.Gateway, m *metrics.Metrics) *HTTPServer {
	return &HTTPServer{
		address: address,
		gateway: gw,
		metrics: m,
		logger:  l.With("module", "http_server"),
	}
}

// Handler returns the routed and instrumented handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+api.PathParameters, s.handleParameters)
	mux.HandleFunc("GET "+api.PathProtocols, s.handleProtocols)
	mux.HandleFunc("POST "+api.PathPublicKey, s.handlePublicKey)
	mux.HandleFunc("POST "+api.PathSuite, s.handleSuite)
	mux.HandleFunc("POST "+api.PathRegister, s.sealed(s.gateway.Register))
	mux.HandleFunc("POST "+api.PathAuth, s.sealed(s.gateway.Authenticate))
	mux.HandleFunc("POST "+api.PathRenew, s.sealed(s.gateway.Renew))
	mux.HandleFunc("POST "+api.PathLogout, s.handleLogout)
	mux.HandleFunc("GET "+api.PathList, s.handleList)
	mux.HandleFunc("GET "+api.PathDownload, s.handleDownload)
	mux.Handle("GET "+api.PathMetrics, s.metrics.Handler())

	return LoggingMiddleware(s.logger, s.metrics, mux)
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
