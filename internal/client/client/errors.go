package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

var (
	ErrNotConnected  = errors.New("no session, call Connect first")
	ErrNotNegotiated = errors.New("no cipher suite negotiated")
)

// APIError is a structured error returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("server error %d: %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the wire code back onto its sentinel.
func (e *APIError) Unwrap() error {
	return common.ErrorFromCode(e.Code)
}
