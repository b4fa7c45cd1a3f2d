package licenses

import (
	"context"

	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

// Store persists license records together with their audit events. Each
// method applies the record change and the event as one atomic unit.
type Store interface {
	// Create inserts a new record. An existing username yields
	// common.ErrUsernameTaken.
	Create(ctx context.Context, lic *models.License, ev models.LicenseEvent) error
	// Get returns the record or common.ErrUserNotFound.
	Get(ctx context.Context, username string) (*models.License, error)
	// Update overwrites views and expiry of an existing record.
	Update(ctx context.Context, lic *models.License, ev models.LicenseEvent) error
	// Events returns up to limit most recent events, newest first.
	Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error)
	Close() error
}
