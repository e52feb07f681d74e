package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrDuplicateEmail surfaces as a field-level error on the email field.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidToken covers every token rejection: malformed string, unknown
	// account, expired window, fingerprint mismatch. Callers must not be able
	// to tell which check failed.
	ErrInvalidToken = errors.New("invalid or expired link")

	// ErrAlreadyConfirmed is an informational short-circuit, not a failure.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
)
