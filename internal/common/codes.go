package common

import "errors"

// Machine-readable error codes carried in the "error" field of every
// structured error response.
const (
	CodeBadRequest           = "bad_request"
	CodeUnauthorized         = "unauthorized"
	CodeKeyExchange          = "key_exchange"
	CodeSessionNotFound      = "session_not_found"
	CodeSuiteNotNegotiated   = "suite_not_negotiated"
	CodeUnsupportedSuite     = "unsupported_suite"
	CodeIntegrity            = "integrity"
	CodeInvalidCertificate   = "invalid_certificate"
	CodeInvalidSignature     = "invalid_signature"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeUsernameTaken        = "username_taken"
	CodeUserNotFound         = "user_not_found"
	CodeLicenseInvalid       = "license_invalid"
	CodeMediaNotFound        = "media_not_found"
	CodeInvalidChunkIndex    = "invalid_chunk_index"
	CodeTransportUnavailable = "transport_unavailable"
	CodeInternal             = "internal"
)

var codeTable = []struct {
	code string
	err  error
}{
	{CodeBadRequest, ErrBadRequest},
	{CodeUnauthorized, ErrorUnauthorized},
	{CodeKeyExchange, ErrKeyExchange},
	{CodeSessionNotFound, ErrSessionNotFound},
	{CodeSuiteNotNegotiated, ErrSuiteNotNegotiated},
	{CodeUnsupportedSuite, ErrUnsupportedSuite},
	{CodeIntegrity, ErrIntegrity},
	{CodeInvalidCertificate, ErrInvalidCertificate},
	{CodeInvalidSignature, ErrInvalidSignature},
	{CodeInvalidCredentials, ErrInvalidCredentials},
	{CodeUsernameTaken, ErrUsernameTaken},
	{CodeUserNotFound, ErrUserNotFound},
	{CodeLicenseInvalid, ErrLicenseInvalid},
	{CodeMediaNotFound, ErrMediaNotFound},
	{CodeInvalidChunkIndex, ErrInvalidChunkIndex},
	{CodeTransportUnavailable, ErrTransportUnavailable},
	{CodeInternal, ErrorInternal},
}

// ErrorCode returns the wire code for err, or CodeInternal when err does not
// wrap any known sentinel.
func ErrorCode(err error) string {
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes yield ErrorInternal.
func ErrorFromCode(code string) error {
	for _, e := range codeTable {
		if e.code == code {
			return e.err
		}
	}
	return ErrorInternal
}
