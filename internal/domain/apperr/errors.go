package apperr

import "errors"

// Sentinel errors shared by every domain package. Callers wrap them with
// context (fmt.Errorf("rule %s: %w", id, ErrNotFound)) and the HTTP layer
// maps them with errors.Is.
var (
	// ErrNotFound indicates the referenced analysis or rule does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller does not own the referenced resource.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")
)
