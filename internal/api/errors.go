// Package api – error taxonomy.
//
// This file defines the client-side error model shared by every endpoint
// wrapper. Failures fall into four kinds:
//
//   - KindValidation: detected locally before any network traffic
//     (disallowed file type, empty input). Never reaches the wire.
//   - KindTransport:  the request never produced an HTTP response
//     (connection refused, timeout, cancelled context).
//   - KindServer:     the backend answered with a non-2xx status.
//   - KindAuth:       a 401-class response on an authenticated call; the
//     session is stale and must be invalidated.
//
// Controllers branch on the kind (never on raw status codes) and map errors
// into their local failure states; nothing here is ever retried
// automatically.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a client error (see package comment).
type Kind int

const (
	KindValidation Kind = iota
	KindTransport
	KindServer
	KindAuth
)

// String returns a stable lower-case name for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Stable machine-readable codes carried in backend error envelopes. The
// backend mirrors common HTTP semantics; unknown codes are preserved as-is.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "too_many_requests"
	CodeInternal     = "internal_error"
)

// Error is the typed error returned by every Client call.
//
// Fields:
//   - Kind:    taxonomy bucket, the only field controllers should branch on.
//   - Status:  HTTP status code (0 for validation/transport errors).
//   - Code:    stable machine-readable code from the backend envelope, or a
//     synthesized one when the body carried none.
//   - Message: human-readable description, safe to show to users.
//   - Err:     underlying cause, if any (wrapped for errors.Is/As).
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (%d %s): %s", e.Kind, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns text suitable for inline display near the triggering
// action. Transport failures get a generic description since the raw cause
// (dial errors, DNS) is meaningless to end users.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTransport:
		return "Network error. Please check your connection and try again."
	case KindAuth:
		return "Your session has expired. Please sign in again."
	default:
		if e.Message != "" {
			return e.Message
		}
		return "Something went wrong. Please try again."
	}
}

// newValidationError builds a local validation failure.
func newValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeBadRequest, Message: msg}
}

// newTransportError wraps a failure that produced no HTTP response.
func newTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}

// newStatusError maps a non-2xx response to a typed error. 401 responses are
// special-cased as auth errors so the session layer can react.
func newStatusError(status int, code, msg string) *Error {
	if code == "" {
		code = defaultCode(status)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	kind := KindServer
	if status == http.StatusUnauthorized {
		kind = KindAuth
		code = CodeUnauthorized
	}
	return &Error{Kind: kind, Status: status, Code: code, Message: msg}
}

// defaultCode synthesizes a stable code for envelopes that carried none.
func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// KindOf extracts the taxonomy kind from any error chain. Errors that are not
// *Error (or do not wrap one) are treated as transport failures, the
// conservative default for unclassified faults.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransport
}

// IsAuthError reports whether err is a 401-class authentication failure.
func IsAuthError(err error) bool { return errAs(err) != nil && errAs(err).Kind == KindAuth }

// IsValidationError reports whether err was raised locally before any
// network traffic.
func IsValidationError(err error) bool {
	return errAs(err) != nil && errAs(err).Kind == KindValidation
}

func errAs(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
