package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/migrations"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/licenses"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Licenses returns a licenses.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Licenses(db dbx.DBTX) licenses.Repository {
	return licenses.NewPostgresRepository(db)
}

// Events returns an events.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Events(db dbx.DBTX) events.Repository {
	return events.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "pgx", migrations.PostgresDir)
}
