package models

import "time"

type EventKind string

const (
	EventRegistered EventKind = "registered"
	EventRenewed    EventKind = "renewed"
	EventConsumed   EventKind = "consumed"
)

// LicenseEvent is one entry of the append-only audit trail kept next to the
// license records.
type LicenseEvent struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Kind           EventKind `json:"kind"`
	ViewsRemaining int       `json:"views_remaining"`
	CreatedAt      time.Time `json:"created_at"`
}
