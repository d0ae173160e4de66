package usecase

import "errors"

// Sentinel errors the handlers map onto HTTP statuses.
var (
	// ErrNotFound marks a scan, user or category that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an operation on a record the caller does not own.
	ErrForbidden = errors.New("forbidden")
)
