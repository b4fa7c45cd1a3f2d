// Package grpc serves the admin API: license inspection and renewal,
// session eviction and runtime stats.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/adminpb"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
	"google.golang.org/grpc"
)

// Ledger is the part of licenses.Ledger the admin service uses.
type Ledger interface {
	Get(ctx context.Context, username string) (*models.License, error)
	Renew(ctx context.Context, username string) (*models.License, error)
	Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error)
}

type GRPCServer struct {
	address   string
	ledger    Ledger
	sessions  *sessions.Store
	logger    logging.Logger
	jwtSecret []byte
	started   time.Time
	now       func() time.Time
}

func NewGRPCServer(a string, l logging.Logger, ledger Ledger, store *sessions.Store, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		ledger:    ledger,
		sessions:  store,
		jwtSecret: []byte(secretKey),
		started:   time.Now(),
		now:       time.Now,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	adminpb.RegisterAdminServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
