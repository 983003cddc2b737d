package service

import "errors"

// The service error taxonomy. Handlers map these to transport responses;
// the core never retries and never reveals which sub-condition of an
// undifferentiated failure was hit.
var (
	// ErrNotFound covers absent users, clients, roles and tokens.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied reports a policy violation (admin-or-self checks).
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials is deliberately undifferentiated: callers cannot
	// tell "no such user" from "wrong secret".
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalidOrExpired is deliberately undifferentiated: unknown
	// token, username mismatch and expiry all surface identically to
	// prevent enumeration.
	ErrTokenInvalidOrExpired = errors.New("reset token invalid or expired")

	// ErrInvalidInput reports missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUsernameTaken reports a create with an already-registered username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrClientIDTaken reports a registration with an existing client_id.
	ErrClientIDTaken = errors.New("client id already registered")
)
