package sync

import (
	gosync "sync"
	"time"

	"github.com/jun/markpad/core/editor"
)

// OfflineChange is an edit made while the backend was unreachable.
type OfflineChange struct {
	DocumentID string           `json:"documentId"`
	Content    string           `json:"content"`
	Selection  editor.Selection `json:"selection"`
	Timestamp  int64            `json:"timestamp"`
}

// NewOfflineChange stamps a change with the current time.
func NewOfflineChange(documentID, content string, sel editor.Selection) OfflineChange {
	return OfflineChange{
		DocumentID: documentID,
		Content:    content,
		Selection:  sel,
		Timestamp:  time.Now().Unix(),
	}
}

// Queue holds offline changes until they can be replayed. Only the latest
// change per document is kept, at the position of the first one queued.
type Queue struct {
	mu      gosync.Mutex
	order   []string
	pending map[string]OfflineChange
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string]OfflineChange)}
}

// Add queues c, replacing any pending change to the same document.
func (q *Queue) Add(c OfflineChange) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[c.DocumentID]; !ok {
		q.order = append(q.order, c.DocumentID)
	}
	q.pending[c.DocumentID] = c
}

// Len returns the number of documents with pending changes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Drain removes and returns every pending change in first-queued order.
func (q *Queue) Drain() []OfflineChange {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]OfflineChange, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.pending[id])
	}
	q.order = nil
	q.pending = make(map[string]OfflineChange)
	return out
}
