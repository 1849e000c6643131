package session

import (
	"context"
	"errors"
	"time"

	"github.com/jun/markpad/backend/internal/model"
)

const DefaultTTL = 5 * time.Minute

var (
	// ErrLocked is returned when another user holds a live lock.
	ErrLocked = errors.New("document is locked by another user")

	// ErrNotOwner is returned by Heartbeat and Release when the caller
	// does not hold the lock.
	ErrNotOwner = errors.New("lock not found or not owned by user")
)

// Locker defines the interface for document edit locks.
// Implementations manage session-based locking to prevent concurrent edit conflicts.
type Locker interface {
	// Acquire takes the lock for userID. It succeeds when no live lock
	// exists or userID already holds it, and fails with ErrLocked otherwise.
	Acquire(ctx context.Context, documentID, userID string) (*model.EditLock, error)

	// Heartbeat extends the lock TTL if the user owns the lock.
	Heartbeat(ctx context.Context, documentID, userID string) (*model.EditLock, error)

	// Release removes the lock if the user owns it.
	Release(ctx context.Context, documentID, userID string) error

	// Status returns the live lock, or nil when the document is free.
	Status(ctx context.Context, documentID string) (*model.EditLock, error)
}
