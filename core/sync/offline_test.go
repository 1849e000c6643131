package sync

import (
	"testing"
	"time"

	"github.com/jun/markpad/core/editor"
)

func TestNewOfflineChange(t *testing.T) {
	before := time.Now().Unix()
	change := NewOfflineChange("doc-1", "hello world", editor.Cursor(5))
	after := time.Now().Unix()

	if change.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want %q", change.DocumentID, "doc-1")
	}
	if change.Content != "hello world" {
		t.Errorf("Content = %q, want %q", change.Content, "hello world")
	}
	if change.Selection != editor.Cursor(5) {
		t.Errorf("Selection = %+v", change.Selection)
	}
	if change.Timestamp < before || change.Timestamp > after {
		t.Errorf("Timestamp %d not in range [%d, %d]", change.Timestamp, before, after)
	}
}

func TestQueue_LatestWinsInFirstQueuedOrder(t *testing.T) {
	q := NewQueue()
	q.Add(OfflineChange{DocumentID: "a", Content: "a1"})
	q.Add(OfflineChange{DocumentID: "b", Content: "b1"})
	q.Add(OfflineChange{DocumentID: "a", Content: "a2"})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d changes, want 2", len(got))
	}
	if got[0].DocumentID != "a" || got[0].Content != "a2" {
		t.Errorf("first change = %+v, want latest change to a", got[0])
	}
	if got[1].DocumentID != "b" || got[1].Content != "b1" {
		t.Errorf("second change = %+v", got[1])
	}
}

func TestQueue_DrainEmpties(t *testing.T) {
	q := NewQueue()
	if got := q.Drain(); len(got) != 0 {
		t.Errorf("Drain() on empty queue = %v", got)
	}
	q.Add(OfflineChange{DocumentID: "a"})
	q.Drain()
	if q.Len() != 0 {
		t.Errorf("Len() after Drain = %d", q.Len())
	}
	q.Add(OfflineChange{DocumentID: "a", Content: "again"})
	if got := q.Drain(); len(got) != 1 || got[0].Content != "again" {
		t.Errorf("Drain() = %+v", got)
	}
}
