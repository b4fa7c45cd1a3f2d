// Package migrations embeds the goose schema migrations for each SQL
// dialect the license store supports.
package migrations

import "embed"

// Migrations holds postgres/*.sql and sqlite/*.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
