package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located, or was located but
	// the conditional filter (for example ownership) did not match.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("repository: already exists")
)
