package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, ev models.LicenseEvent) (int64, error) {
	query :=
		`INSERT INTO license_events (username, kind, views_remaining, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, ev.Username, string(ev.Kind), ev.ViewsRemaining, ev.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) ListByUsername(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	query :=
		`SELECT id, username, kind, views_remaining, created_at FROM license_events
		 WHERE username = $1
		 ORDER BY id DESC
		 LIMIT NULLIF($2, -1)
		 `

	rows, err := r.db.QueryContext(ctx, query, username, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.LicenseEvent
	for rows.Next() {
		var ev models.LicenseEvent
		var kind string
		if err := rows.Scan(&ev.ID, &ev.Username, &kind, &ev.ViewsRemaining, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
