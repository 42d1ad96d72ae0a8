package shared

import "errors"

// Sentinel errors shared by the auth, tenancy and session layers. Callers
// match them with errors.Is; httpx maps them to status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionMissing means a handler ran outside the session middleware.
	ErrSessionMissing    = errors.New("session missing")
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
