package model

import "errors"

// Error kinds shared across packages. Callers wrap them with context and
// the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUpstream    = errors.New("upstream dependency failed")
	ErrUnavailable = errors.New("not configured")
)
