package api

import (
	"net/http"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

var statusByCode = map[string]int{
	common.CodeBadRequest:         http.StatusBadRequest,
	common.CodeKeyExchange:        http.StatusBadRequest,
	common.CodeIntegrity:          http.StatusBadRequest,
	common.CodeInvalidChunkIndex:  http.StatusBadRequest,
	common.CodeUnsupportedSuite:   http.StatusBadRequest,
	common.CodeUnauthorized:       http.StatusUnauthorized,
	common.CodeSessionNotFound:    http.StatusUnauthorized,
	common.CodeInvalidSignature:   http.StatusUnauthorized,
	common.CodeInvalidCredentials: http.StatusUnauthorized,
	common.CodeInvalidCertificate: http.StatusForbidden,
	common.CodeLicenseInvalid:     http.StatusForbidden,
	common.CodeUserNotFound:       http.StatusNotFound,
	common.CodeMediaNotFound:      http.StatusNotFound,
	common.CodeSuiteNotNegotiated: http.StatusConflict,
	common.CodeUsernameTaken:      http.StatusConflict,
}

// HTTPStatus maps err to the status code used on the wire.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[common.ErrorCode(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the error body for err. Internal errors carry a
// generic message only.
func NewErrorResponse(err error) ErrorResponse {
	code := common.ErrorCode(err)
	msg := err.Error()
	if code == common.CodeInternal {
		msg = common.ErrorInternal.Error()
	}
	return ErrorResponse{Error: code, Message: msg}
}
