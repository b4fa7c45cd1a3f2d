// Package repomanager vends dialect-specific repositories and runs the
// matching goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/migrations"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/licenses"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Licenses(db dbx.DBTX) licenses.Repository
	Events(db dbx.DBTX) events.Repository
}

// Driver names accepted by New; they double as database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// New returns the manager for the given database/sql driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	case DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return err
	}
	return nil
}
