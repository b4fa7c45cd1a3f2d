package common

const (
	// AccessTokenHeaderName is the gRPC metadata key carrying the admin
	// access token.
	AccessTokenHeaderName = "access_token"

	// SessionIDHeaderName carries the session identifier issued by the key
	// exchange on every subsequent HTTP request.
	SessionIDHeaderName = "sessionid"

	// MICHeaderName carries the base64 message integrity code of a sealed body.
	MICHeaderName = "MIC"
)
