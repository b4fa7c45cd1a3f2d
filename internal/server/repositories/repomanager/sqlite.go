package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/migrations"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophstream/internal/server/repositories/licenses"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Licenses(db dbx.DBTX) licenses.Repository {
	return licenses.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Events(db dbx.DBTX) events.Repository {
	return events.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3", migrations.SQLiteDir)
}
