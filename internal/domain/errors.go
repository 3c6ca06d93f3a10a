package domain

import "errors"

// Error kinds shared across services. Handlers map these to HTTP statuses
// in exactly one place; everything else wraps them with %w. Resource
// absence and access denial both surface as ErrNotFound so responses never
// confirm the existence of another user's notes.
var (
	ErrValidation     = errors.New("invalid input")
	ErrAuthentication = errors.New("authentication failed")
	ErrConflict       = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
)
