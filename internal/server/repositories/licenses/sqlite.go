package licenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dbx"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

// SQLiteRepository stores timestamps as Unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, lic *models.License) error {
	digests, err := encodeDigests(lic.PasswordDigests)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO licenses (username, password_digests, views_remaining, expires_at, certificate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		lic.Username, digests, lic.ViewsRemaining, lic.ExpiresAt.UnixMilli(), lic.Certificate, lic.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrUsernameTaken
	}
	return nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.License, error) {
	query :=
		`SELECT username, password_digests, views_remaining, expires_at, certificate, created_at FROM licenses
		 WHERE username = ?
		 `

	lic := &models.License{}
	var digests string
	var expiresAt, createdAt int64
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&lic.Username, &digests, &lic.ViewsRemaining, &expiresAt, &lic.Certificate, &createdAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	lic.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	lic.CreatedAt = time.UnixMilli(createdAt).UTC()
	lic.PasswordDigests, err = decodeDigests(digests)
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (r *SQLiteRepository) UpdateUsage(ctx context.Context, username string, views int, expiresAt time.Time) error {
	query :=
		`UPDATE licenses SET views_remaining = ?, expires_at = ?
		 WHERE username = ?
		 `

	res, err := r.db.ExecContext(ctx, query, views, expiresAt.UnixMilli(), username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrUserNotFound
	}
	return nil
}
