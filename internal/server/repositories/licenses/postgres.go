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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, lic *models.License) error {
	digests, err := encodeDigests(lic.PasswordDigests)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO licenses (username, password_digests, views_remaining, expires_at, certificate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (username) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		lic.Username, digests, lic.ViewsRemaining, lic.ExpiresAt, lic.Certificate, lic.CreatedAt)
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

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.License, error) {
	query :=
		`SELECT username, password_digests, views_remaining, expires_at, certificate, created_at FROM licenses
		 WHERE username = $1
		 `

	lic := &models.License{}
	var digests string
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&lic.Username, &digests, &lic.ViewsRemaining, &lic.ExpiresAt, &lic.Certificate, &lic.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	lic.PasswordDigests, err = decodeDigests(digests)
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (r *PostgresRepository) UpdateUsage(ctx context.Context, username string, views int, expiresAt time.Time) error {
	query :=
		`UPDATE licenses SET views_remaining = $2, expires_at = $3
		 WHERE username = $1
		 `

	res, err := r.db.ExecContext(ctx, query, username, views, expiresAt)
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
