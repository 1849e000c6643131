package adapter

import (
	"context"
)

// StoreProvider defines how to get a DocumentStore for a specific user.
type StoreProvider interface {
	// GetStore returns the DocumentStore for the given user ID.
	GetStore(ctx context.Context, userID string) (DocumentStore, error)
}
