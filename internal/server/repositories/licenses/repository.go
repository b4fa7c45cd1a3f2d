// Package licenses contains the SQL repositories for license records.
package licenses

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/suite"
)

type Repository interface {
	// Create inserts lic; an existing username yields common.ErrUsernameTaken.
	Create(ctx context.Context, lic *models.License) error
	GetByUsername(ctx context.Context, username string) (*models.License, error)
	// UpdateUsage stores new views and expiry; unknown users yield
	// common.ErrUserNotFound.
	UpdateUsage(ctx context.Context, username string, views int, expiresAt time.Time) error
}

func encodeDigests(d map[suite.Digest][]byte) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode digests: %w", err)
	}
	return string(b), nil
}

func decodeDigests(s string) (map[suite.Digest][]byte, error) {
	d := map[suite.Digest][]byte{}
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, fmt.Errorf("decode digests: %w", err)
	}
	return d, nil
}
