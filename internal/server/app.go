// Package server wires the streaming server together: storage, ledger,
// sessions, catalog, assets, the HTTP API and the admin gRPC service. It
// also owns graceful shutdown.
package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/filex"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/pki"
	"github.com/dmitrijs2005/gophstream/internal/server/assets"
	"github.com/dmitrijs2005/gophstream/internal/server/auth"
	"github.com/dmitrijs2005/gophstream/internal/server/catalog"
	"github.com/dmitrijs2005/gophstream/internal/server/config"
	"github.com/dmitrijs2005/gophstream/internal/server/gateway"
	"github.com/dmitrijs2005/gophstream/internal/server/httpapi"
	"github.com/dmitrijs2005/gophstream/internal/server/licenses"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
	"github.com/dmitrijs2005/gophstream/internal/server/storage/badgerstore"
	"github.com/dmitrijs2005/gophstream/internal/server/storage/sqlstore"

	gs "github.com/dmitrijs2005/gophstream/internal/server/grpc"
)

const janitorInterval = 30 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    licenses.Store
	ledger   *licenses.Ledger
	sessions *sessions.Store
	metrics  *metrics.Metrics
	gateway  *gateway.Gateway
}

// NewApp builds every component from c. Any error here is a startup
// failure and the process should exit.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	params, created, err := dh.LoadOrGenerate(c.ParametersFile, rand.Reader, c.ParametersBits)
	if err != nil {
		return nil, fmt.Errorf("dh parameters error: %w", err)
	}
	if created {
		logger.Info(ctx, "Generated DH parameters", "path", c.ParametersFile, "bits", params.P.BitLen())
	}

	roots, err := pki.LoadRoots(c.RootsFile)
	if err != nil {
		return nil, fmt.Errorf("pki roots error: %w", err)
	}

	cat, err := catalog.Load(c.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("catalog error: %w", err)
	}

	src, err := openAssets(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("assets error: %w", err)
	}

	store, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	ledger := licenses.NewLedger(store, pki.NewValidator(roots), c.LicenseViews, c.LicenseWindow, logger)
	ss := sessions.NewStore(c.SessionIdleTimeout, c.HandshakeTimeout, logger)
	m := metrics.New(ss.Len)

	gw, err := gateway.New(params, ss, ledger, cat, src, m, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info(ctx, "Server initialized",
		"storage", c.StorageDriver, "catalog_items", cat.Len(), "views", c.LicenseViews, "window", c.LicenseWindow.String())

	return &App{
		config:   c,
		logger:   logger,
		store:    store,
		ledger:   ledger,
		sessions: ss,
		metrics:  m,
		gateway:  gw,
	}, nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (licenses.Store, error) {
	switch c.StorageDriver {
	case config.StorageMemory:
		return licenses.NewMemoryStore(), nil
	case config.StoragePostgres:
		return sqlstore.Open(ctx, repomanager.DriverPostgres, c.StorageDSN, logger)
	case config.StorageSQLite:
		if p := filex.SQLitePath(c.StorageDSN); p != "" {
			if _, err := filex.EnsureParentDir(p); err != nil {
				return nil, err
			}
		}
		return sqlstore.Open(ctx, repomanager.DriverSQLite, c.StorageDSN, logger)
	case config.StorageBadger:
		return badgerstore.Open(c.StorageDSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

func openAssets(ctx context.Context, c *config.Config) (assets.Source, error) {
	if c.S3Bucket == "" {
		return assets.NewFileSource(c.AssetRoot), nil
	}
	return assets.NewS3Source(ctx, assets.S3Config{
		Bucket:   c.S3Bucket,
		Prefix:   c.S3Prefix,
		Region:   c.S3Region,
		Endpoint: c.S3BaseEndpoint,
		User:     c.S3RootUser,
		Password: c.S3RootPassword,
	})
}

// IssueAdminToken mints an admin service token for operator.
func IssueAdminToken(c *config.Config, operator string) (string, error) {
	return auth.GenerateToken(operator, []byte(c.SecretKey), c.AdminTokenValidityDuration)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.gateway, app.metrics)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.ledger, app.sessions, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or one of the
// servers fails, then closes the store.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.sessions.RunJanitor(ctx, janitorInterval)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "Closing store failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
