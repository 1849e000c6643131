package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrPreconditionFailed is returned when an ETag mismatch occurs.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrTooLarge is returned when document content exceeds MaxContentSize.
	ErrTooLarge = errors.New("content too large")

	// ErrInvalidName is returned for empty names or names over MaxNameLength.
	ErrInvalidName = errors.New("invalid document name")

	// ErrLimitReached is returned when a user already owns MaxDocuments.
	ErrLimitReached = errors.New("document limit reached")
)
