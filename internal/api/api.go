// Package api defines the HTTP wire contract shared by the streaming server
// and its client: routes, headers, JSON bodies and the error envelope.
package api

import (
	"time"

	"github.com/dmitrijs2005/gophstream/internal/suite"
)

const (
	PathParameters = "/api/parameters"
	PathProtocols  = "/api/protocols"
	PathPublicKey  = "/api/publickey"
	PathSuite      = "/api/suite"
	PathRegister   = "/api/newLicense"
	PathAuth       = "/api/auth"
	PathRenew      = "/api/renew"
	PathLogout     = "/api/logout"
	PathList       = "/api/list"
	PathDownload   = "/api/download"
	PathMetrics    = "/metrics"
)

const StatusOK = "ok"

type ParametersResponse struct {
	Parameters string `json:"parameters"`
}

// PublicKeyMessage carries a PEM encoded DH public key in both directions.
type PublicKeyMessage struct {
	PublicKey string `json:"public_key"`
}

type SuiteRequest = suite.Suite

type StatusResponse struct {
	Status string `json:"status"`
}

// RegisterRequest is sent sealed. Signature covers username followed by
// password.
type RegisterRequest struct {
	Username    string   `json:"username"`
	Password    []byte   `json:"password"`
	Signature   []byte   `json:"signature"`
	Certificate []byte   `json:"certificate"`
	Chain       [][]byte `json:"chain,omitempty"`
}

// AuthRequest is sent sealed. PasswordDigest is computed with the digest of
// the negotiated suite; Signature covers username followed by the digest.
type AuthRequest struct {
	Username       string `json:"username"`
	PasswordDigest []byte `json:"password_digest"`
	Signature      []byte `json:"signature"`
}

type LicenseSummary struct {
	Username       string    `json:"username"`
	ViewsRemaining int       `json:"views_remaining"`
	ExpiresAt      time.Time `json:"expires_at"`
	Valid          bool      `json:"valid"`
}

type MediaSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Album       string `json:"album"`
	Description string `json:"description"`
	Chunks      int64  `json:"chunks"`
	Duration    int    `json:"duration"`
}

type ChunkResponse struct {
	MediaID string `json:"media_id"`
	Chunk   int64  `json:"chunk"`
	Data    []byte `json:"data"`
}

// ErrorResponse is the body of every failed request; Error holds one of the
// common.Code* values.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
