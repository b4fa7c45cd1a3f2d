package events

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

// SQLiteRepository stores timestamps as unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, ev models.LicenseEvent) (int64, error) {
	query :=
		`INSERT INTO license_events (username, kind, views_remaining, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, ev.Username, string(ev.Kind), ev.ViewsRemaining, ev.CreatedAt.UnixMilli()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListByUsername(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	// sqlite treats a negative LIMIT as no limit
	query :=
		`SELECT id, username, kind, views_remaining, created_at FROM license_events
		 WHERE username = ?
		 ORDER BY id DESC
		 LIMIT ?
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
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.Username, &kind, &ev.ViewsRemaining, &createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		ev.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
