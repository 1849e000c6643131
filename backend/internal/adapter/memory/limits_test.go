package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jun/markpad/backend/internal/adapter"
)

func TestStore_Limits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	t.Run("Name length limit", func(t *testing.T) {
		longName := strings.Repeat("a", adapter.MaxNameLength+1)
		_, err := s.Create(ctx, longName, []byte("content"))
		if !errors.Is(err, adapter.ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName, got: %v", err)
		}
	})

	t.Run("Empty name", func(t *testing.T) {
		_, err := s.Create(ctx, "  ", nil)
		if !errors.Is(err, adapter.ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName, got: %v", err)
		}
	})

	t.Run("Content size limit", func(t *testing.T) {
		largeContent := make([]byte, adapter.MaxContentSize+1)
		_, err := s.Create(ctx, "big", largeContent)
		if !errors.Is(err, adapter.ErrTooLarge) {
			t.Errorf("Expected ErrTooLarge, got: %v", err)
		}
		doc, _ := s.Create(ctx, "small", nil)
		if _, err := s.Save(ctx, doc.ID, largeContent, ""); !errors.Is(err, adapter.ErrTooLarge) {
			t.Errorf("Expected ErrTooLarge on save, got: %v", err)
		}
	})

	t.Run("Document count limit", func(t *testing.T) {
		s2 := NewStore()
		var last *adapter.Metadata
		for i := 0; i < adapter.MaxDocuments; i++ {
			doc, err := s2.Create(ctx, "note", []byte("ok"))
			if err != nil {
				t.Fatalf("Failed to create document %d: %v", i, err)
			}
			last = doc
		}
		if _, err := s2.Create(ctx, "overflow", []byte("ok")); !errors.Is(err, adapter.ErrLimitReached) {
			t.Errorf("Expected ErrLimitReached, got: %v", err)
		}
		if _, err := s2.Duplicate(ctx, last.ID); !errors.Is(err, adapter.ErrLimitReached) {
			t.Errorf("Expected ErrLimitReached on duplicate, got: %v", err)
		}
	})
}

func TestCopyName(t *testing.T) {
	long := strings.Repeat("é", adapter.MaxNameLength)
	got := adapter.CopyName(long)
	if len(got) > adapter.MaxNameLength {
		t.Errorf("CopyName length %d exceeds limit", len(got))
	}
	if err := adapter.CheckName(got); err != nil {
		t.Errorf("CopyName produced an invalid name: %v", err)
	}
}
