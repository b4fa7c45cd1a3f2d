// Package events contains the SQL repositories for the license audit trail.
package events

import (
	"context"

	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

type Repository interface {
	// Append stores ev and returns its generated id.
	Append(ctx context.Context, ev models.LicenseEvent) (int64, error)
	// ListByUsername returns up to limit events, newest first. A limit of
	// zero or less returns all of them.
	ListByUsername(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error)
}

const unlimited = -1

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return unlimited
	}
	return limit
}
