// Package models holds the records persisted by the license stores.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophstream/internal/suite"
)

// License is the per-user rights record.
type License struct {
	Username        string                  `json:"username"`
	PasswordDigests map[suite.Digest][]byte `json:"password_digests"`
	ViewsRemaining  int                     `json:"views_remaining"`
	ExpiresAt       time.Time               `json:"expires_at"`
	Certificate     []byte                  `json:"certificate"`
	CreatedAt       time.Time               `json:"created_at"`
}

// Clone returns a deep copy.
func (l *License) Clone() *License {
	out := *l
	out.PasswordDigests = make(map[suite.Digest][]byte, len(l.PasswordDigests))
	for k, v := range l.PasswordDigests {
		out.PasswordDigests[k] = append([]byte(nil), v...)
	}
	out.Certificate = append([]byte(nil), l.Certificate...)
	return &out
}

// Valid reports whether the license may still be consumed at now.
func (l *License) Valid(now time.Time) bool {
	return l.ViewsRemaining > 0 && l.ExpiresAt.After(now)
}
