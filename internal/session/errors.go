package session

import "errors"

// ErrUnauthorized classifies every credential failure in this package.
// Handlers map anything satisfying errors.Is(err, ErrUnauthorized) to
// a 401; everything else is a storage or signing failure and maps to a
// 500. Callers must never retry an unauthorized refresh — the only
// recovery is a fresh login.
var ErrUnauthorized = errors.New("unauthorized")

// The distinct reasons below exist for logs and tests. Their external
// shape is identical on purpose: the response never tells an attacker
// which branch rejected the token.
var (
	ErrTokenInvalid  = unauthorized("invalid refresh token")
	ErrTokenExpired  = unauthorized("refresh token expired")
	ErrGrantNotFound = unauthorized("refresh token revoked or not found")
	ErrGrantRevoked  = unauthorized("refresh token revoked or not found")
	ErrGrantExpired  = unauthorized("refresh token expired")
)

type unauthorizedError struct{ reason string }

func (e *unauthorizedError) Error() string { return e.reason }
func (e *unauthorizedError) Unwrap() error { return ErrUnauthorized }

func unauthorized(reason string) error {
	return &unauthorizedError{reason: reason}
}
