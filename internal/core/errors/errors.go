package errors

import (
	"errors"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredential = errors.New("invalid credential")
	ErrCredentialExpired = errors.New("credential expired")
	ErrAuthUnavailable   = errors.New("authentication service unavailable")
	ErrPermissionDenied  = errors.New("permission denied")

	// Realtime state
	ErrUnknownConnection = errors.New("unknown connection")
	ErrNotAuthenticated  = errors.New("connection not authenticated")
	ErrInvalidStatus     = errors.New("invalid presence status")
	ErrInvalidTopic      = errors.New("invalid topic name")

	// Metrics
	ErrMetricsUnavailable = errors.New("no metrics snapshot could be built")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AuthErrorReason reduces an authentication failure to the reason string sent
// to the failing connection. ErrAuthUnavailable is deliberately reported as an
// invalid credential; the distinction exists only for server-side logs.
func AuthErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrCredentialExpired):
		return "expired"
	default:
		return "invalid"
	}
}
