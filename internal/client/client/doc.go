// Package client implements the streaming protocol from the consumer side.
//
// # Overview
//
// A Client walks the same steps as the server expects them:
//  1. Connect fetches the domain parameters and runs the key exchange,
//     which yields a session id and a shared secret.
//  2. Negotiate picks a cipher suite; from then on every protected
//     request and response is sealed with that session's channel.
//  3. Register or Authenticate binds a license to the session.
//  4. List and Download read the catalog and media chunks. Each chunk
//     response is bound to its index.
//
// The HTTP transport is go-retryablehttp, so connection failures and
// gateway errors are retried before they surface.
//
// # Error Handling
//
// Transport failures wrap common.ErrTransportUnavailable. Structured error
// responses decode to an *APIError, which unwraps to the matching sentinel
// from package common, so callers match with errors.Is.
//
// # Concurrency
//
// A Client holds a single session and is not safe for concurrent
// handshakes. Once negotiated, List and Download may run concurrently.
package client
