// Package common defines shared constants and sentinel errors used across
// client and server layers of GophStream. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Admin token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Transport and handshake errors.
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrKeyExchange          = errors.New("key exchange failed")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSuiteNotNegotiated   = errors.New("cipher suite not negotiated")
	ErrUnsupportedSuite     = errors.New("unsupported cipher suite")
	ErrIntegrity            = errors.New("message integrity check failed")

	// License errors.
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrLicenseInvalid     = errors.New("license is not valid")

	// Catalog errors.
	ErrMediaNotFound     = errors.New("media not found")
	ErrInvalidChunkIndex = errors.New("invalid chunk index")

	// Malformed input rejected at the boundary.
	ErrBadRequest = errors.New("bad request")
)
