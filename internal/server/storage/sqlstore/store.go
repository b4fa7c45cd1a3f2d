// Package sqlstore implements the license store on top of database/sql,
// using the dialect-specific repositories from repomanager.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/repomanager"
)

type Store struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to dsn with the given database/sql driver name ("pgx" or
// "sqlite"), pings the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string, logger logging.Logger) (*Store, error) {
	rm, err := repomanager.New(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == repomanager.DriverSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent transactions
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return New(db, rm, logger), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *Store {
	return &Store{db: db, rm: rm, logger: logger.With("module", "sqlstore")}
}

func (s *Store) Create(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Licenses(tx).Create(ctx, lic); err != nil {
			return err
		}
		_, err := s.rm.Events(tx).Append(ctx, ev)
		return err
	})
}

func (s *Store) Get(ctx context.Context, username string) (*models.License, error) {
	return s.rm.Licenses(s.db).GetByUsername(ctx, username)
}

func (s *Store) Update(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Licenses(tx).UpdateUsage(ctx, lic.Username, lic.ViewsRemaining, lic.ExpiresAt); err != nil {
			return err
		}
		_, err := s.rm.Events(tx).Append(ctx, ev)
		return err
	})
}

func (s *Store) Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	return s.rm.Events(s.db).ListByUsername(ctx, username, limit)
}

func (s *Store) Close() error {
	s.logger.Info(context.Background(), "Closing database")
	return s.db.Close()
}
