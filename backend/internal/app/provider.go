package app

import (
	"context"
	"strings"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/handler"
)

// HybridProvider keeps demo users in memory and everyone else in the
// primary store.
type HybridProvider struct {
	primary adapter.StoreProvider
	demo    adapter.StoreProvider
}

func (h *HybridProvider) GetStore(ctx context.Context, userID string) (adapter.DocumentStore, error) {
	if strings.HasPrefix(userID, handler.DemoUserPrefix) {
		return h.demo.GetStore(ctx, userID)
	}
	return h.primary.GetStore(ctx, userID)
}
