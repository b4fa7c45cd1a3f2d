// Package licenses implements the license ledger: registration against a
// trusted certificate, password authentication, and the view/expiry
// accounting that gates streaming.
//
// A username moves through Unregistered -> Registered, where a registered
// license is Valid, Expired or Exhausted depending on its expiry and views.
// Renew returns any registered license to Valid.
package licenses

import (
	"context"
	"crypto/subtle"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/pki"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/suite"
)

const (
	DefaultViews       = 4
	DefaultGrantWindow = 5 * time.Minute

	maxUsernameLength = 128
)

// CertificateValidator checks a DER certificate and its intermediates and
// returns the parsed leaf.
type CertificateValidator interface {
	Verify(leafDER []byte, chainDER [][]byte) (*x509.Certificate, error)
}

// RegisterRequest carries everything a client presents to obtain a license.
// Signature covers username followed by password.
type RegisterRequest struct {
	Username    string
	Password    []byte
	Signature   []byte
	Certificate []byte
	Chain       [][]byte
}

// Ledger serializes every read-modify-write per username; different users
// never wait on each other.
type Ledger struct {
	store     Store
	validator CertificateValidator
	locks     *keyedMutex
	views     int
	window    time.Duration
	now       func() time.Time
	logger    logging.Logger
}

// NewLedger builds a ledger granting views per license for window. Zero
// values fall back to DefaultViews and DefaultGrantWindow.
func NewLedger(store Store, validator CertificateValidator, views int, window time.Duration, logger logging.Logger) *Ledger {
	if views <= 0 {
		views = DefaultViews
	}
	if window <= 0 {
		window = DefaultGrantWindow
	}
	return &Ledger{
		store:     store,
		validator: validator,
		locks:     newKeyedMutex(),
		views:     views,
		window:    window,
		now:       time.Now,
		logger:    logger.With("module", "license_ledger"),
	}
}

// Register validates the certificate chain and the signature, then creates
// a fresh license with the default views and grant window.
func (l *Ledger) Register(ctx context.Context, req RegisterRequest) (*models.License, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if len(req.Password) == 0 {
		return nil, fmt.Errorf("%w: empty password", common.ErrBadRequest)
	}

	leaf, err := l.validator.Verify(req.Certificate, req.Chain)
	if err != nil {
		l.logger.Warn(ctx, "Rejected certificate", "username", req.Username, "error", err)
		return nil, err
	}
	if err := pki.VerifySignature(leaf, pki.CredentialMessage(req.Username, req.Password), req.Signature); err != nil {
		l.logger.Warn(ctx, "Rejected registration signature", "username", req.Username)
		return nil, err
	}

	digests := make(map[suite.Digest][]byte)
	for _, d := range suite.Digests() {
		sum, err := d.Sum(req.Password)
		if err != nil {
			return nil, err
		}
		digests[d] = sum
	}

	unlock := l.locks.Lock(req.Username)
	defer unlock()

	now := l.now()
	lic := &models.License{
		Username:        req.Username,
		PasswordDigests: digests,
		ViewsRemaining:  l.views,
		ExpiresAt:       now.Add(l.window),
		Certificate:     append([]byte(nil), req.Certificate...),
		CreatedAt:       now,
	}
	if err := l.store.Create(ctx, lic, l.event(lic, models.EventRegistered)); err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "License registered", "username", lic.Username, "expires_at", lic.ExpiresAt)
	return lic, nil
}

// Authenticate checks a signature over username followed by passwordDigest
// with the certificate stored at registration, then compares passwordDigest
// with the stored digest for the given algorithm.
func (l *Ledger) Authenticate(ctx context.Context, username string, digest suite.Digest, passwordDigest, signature []byte) (*models.License, error) {
	lic, err := l.store.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	cert, err := pki.ParseCertificate(lic.Certificate)
	if err != nil {
		return nil, fmt.Errorf("stored certificate for %q: %w", username, err)
	}
	if err := pki.VerifySignature(cert, pki.CredentialMessage(username, passwordDigest), signature); err != nil {
		l.logger.Warn(ctx, "Rejected authentication signature", "username", username)
		return nil, err
	}

	stored, ok := lic.PasswordDigests[digest]
	if !ok || subtle.ConstantTimeCompare(stored, passwordDigest) != 1 {
		l.logger.Warn(ctx, "Rejected credentials", "username", username)
		return nil, common.ErrInvalidCredentials
	}
	return lic, nil
}

// IsValid reports whether username has views left and an unexpired grant.
// Unknown users are simply not valid.
func (l *Ledger) IsValid(ctx context.Context, username string) (bool, error) {
	lic, err := l.store.Get(ctx, username)
	if errors.Is(err, common.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lic.Valid(l.now()), nil
}

// Renew resets views and restarts the grant window.
func (l *Ledger) Renew(ctx context.Context, username string) (*models.License, error) {
	return l.mutate(ctx, username, models.EventRenewed, func(lic *models.License, now time.Time) error {
		lic.ViewsRemaining = l.views
		lic.ExpiresAt = now.Add(l.window)
		return nil
	})
}

// Consume spends one view, stopping at zero.
func (l *Ledger) Consume(ctx context.Context, username string) (*models.License, error) {
	return l.mutate(ctx, username, models.EventConsumed, func(lic *models.License, _ time.Time) error {
		if lic.ViewsRemaining > 0 {
			lic.ViewsRemaining--
		}
		return nil
	})
}

// ConsumeIfValid checks validity and spends one view in a single step, so
// concurrent callers can never spend more views than the license holds.
func (l *Ledger) ConsumeIfValid(ctx context.Context, username string) (*models.License, error) {
	return l.mutate(ctx, username, models.EventConsumed, func(lic *models.License, now time.Time) error {
		if !lic.Valid(now) {
			return common.ErrLicenseInvalid
		}
		lic.ViewsRemaining--
		return nil
	})
}

// Get returns the current record.
func (l *Ledger) Get(ctx context.Context, username string) (*models.License, error) {
	return l.store.Get(ctx, username)
}

// Events returns the newest audit events of username.
func (l *Ledger) Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	return l.store.Events(ctx, username, limit)
}

func (l *Ledger) mutate(ctx context.Context, username string, kind models.EventKind, fn func(*models.License, time.Time) error) (*models.License, error) {
	unlock := l.locks.Lock(username)
	defer unlock()

	lic, err := l.store.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := fn(lic, l.now()); err != nil {
		return nil, err
	}
	if err := l.store.Update(ctx, lic, l.event(lic, kind)); err != nil {
		return nil, err
	}

	l.logger.Debug(ctx, "License updated", "username", username, "event", kind, "views_remaining", lic.ViewsRemaining)
	return lic, nil
}

func (l *Ledger) event(lic *models.License, kind models.EventKind) models.LicenseEvent {
	return models.LicenseEvent{
		Username:       lic.Username,
		Kind:           kind,
		ViewsRemaining: lic.ViewsRemaining,
		CreatedAt:      l.now(),
	}
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", common.ErrBadRequest)
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("%w: username longer than %d bytes", common.ErrBadRequest, maxUsernameLength)
	}
	return nil
}
