package session

import (
	"context"
	"sync"
	"time"

	"github.com/jun/markpad/backend/internal/model"
)

// MemoryLocker implements Locker with an in-memory map. It serves tests
// and single-process servers.
type MemoryLocker struct {
	locks map[string]*model.EditLock
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryLocker creates a MemoryLocker with the default TTL.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*model.EditLock),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
}

// live returns the unexpired lock on documentID. The caller holds m.mu.
func (m *MemoryLocker) live(documentID string) *model.EditLock {
	l, ok := m.locks[documentID]
	if !ok {
		return nil
	}
	if l.ExpiresAt < m.now().Unix() {
		delete(m.locks, documentID)
		return nil
	}
	return l
}

func (m *MemoryLocker) Acquire(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.live(documentID); existing != nil && existing.UserID != userID {
		return nil, ErrLocked
	}

	l := &model.EditLock{
		DocumentID: documentID,
		UserID:     userID,
		ExpiresAt:  m.now().Add(m.ttl).Unix(),
	}
	m.locks[documentID] = l
	out := *l
	return &out, nil
}

func (m *MemoryLocker) Heartbeat(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.live(documentID)
	if existing == nil || existing.UserID != userID {
		return nil, ErrNotOwner
	}
	existing.ExpiresAt = m.now().Add(m.ttl).Unix()
	out := *existing
	return &out, nil
}

func (m *MemoryLocker) Release(ctx context.Context, documentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.live(documentID)
	if existing == nil || existing.UserID != userID {
		return ErrNotOwner
	}
	delete(m.locks, documentID)
	return nil
}

func (m *MemoryLocker) Status(ctx context.Context, documentID string) (*model.EditLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.live(documentID)
	if existing == nil {
		return nil, nil
	}
	out := *existing
	return &out, nil
}
