package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrBadRequest, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", common.ErrIntegrity), http.StatusBadRequest},
		{common.ErrInvalidChunkIndex, http.StatusBadRequest},
		{common.ErrSessionNotFound, http.StatusUnauthorized},
		{common.ErrInvalidCredentials, http.StatusUnauthorized},
		{common.ErrInvalidCertificate, http.StatusForbidden},
		{common.ErrLicenseInvalid, http.StatusForbidden},
		{common.ErrMediaNotFound, http.StatusNotFound},
		{common.ErrUserNotFound, http.StatusNotFound},
		{common.ErrUsernameTaken, http.StatusConflict},
		{common.ErrSuiteNotNegotiated, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestNewErrorResponse(t *testing.T) {
	r := NewErrorResponse(fmt.Errorf("%w: chunk 900", common.ErrInvalidChunkIndex))
	assert.Equal(t, common.CodeInvalidChunkIndex, r.Error)
	assert.Contains(t, r.Message, "chunk 900")

	r = NewErrorResponse(errors.New("pq: password authentication failed"))
	assert.Equal(t, common.CodeInternal, r.Error)
	assert.Equal(t, "internal error", r.Message)
}
