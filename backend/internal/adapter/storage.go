package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxContentSize = 256 * 1024 // 256KB
	MaxNameLength  = 255
	MaxDocuments   = 50
)

// Metadata describes a stored document without its content.
type Metadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	Starred      bool      `json:"starred"`
}

// Document is a stored document with its content.
type Document struct {
	Metadata
	Content []byte `json:"content"`
}

// DocumentStore is one user's document collection. Implementations enforce
// the size, name and count limits and the ETag precondition on Save.
type DocumentStore interface {
	// List returns every document, most recently modified first.
	List(ctx context.Context) ([]Metadata, error)

	// Get retrieves a document's content and metadata by its ID.
	Get(ctx context.Context, id string) (*Document, error)

	// Create stores a new document.
	Create(ctx context.Context, name string, content []byte) (*Metadata, error)

	// Save replaces a document's content.
	// A non-empty etag must match the stored one (optimistic locking).
	// If etag is empty, it forces an overwrite.
	Save(ctx context.Context, id string, content []byte, etag string) (*Metadata, error)

	// Rename changes a document's name.
	Rename(ctx context.Context, id, name string) (*Metadata, error)

	// SetStarred sets the starred status of a document.
	SetStarred(ctx context.Context, id string, starred bool) (*Metadata, error)

	// Duplicate copies a document under a "Copy of" name.
	Duplicate(ctx context.Context, id string) (*Metadata, error)

	// Delete removes a document.
	Delete(ctx context.Context, id string) error

	// ListStarred lists starred documents.
	ListStarred(ctx context.Context) ([]Metadata, error)

	// Search returns documents whose name or content contains query,
	// ignoring case.
	Search(ctx context.Context, query string) ([]Metadata, error)
}

// CheckName validates a document name against the store limits.
func CheckName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength || !utf8.ValidString(name) {
		return fmt.Errorf("%w: max %d bytes of UTF-8", ErrInvalidName, MaxNameLength)
	}
	return nil
}

// CheckContent validates document content against the store limits.
func CheckContent(content []byte) error {
	if len(content) > MaxContentSize {
		return fmt.Errorf("%w (max %d bytes)", ErrTooLarge, MaxContentSize)
	}
	return nil
}

// Matches reports whether a document matches a search query.
func Matches(name string, content []byte, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(string(content)), q)
}

// CopyName is the name given to a duplicated document.
func CopyName(name string) string {
	n := "Copy of " + name
	if len(n) > MaxNameLength {
		n = n[:MaxNameLength]
		for !utf8.ValidString(n) {
			n = n[:len(n)-1]
		}
	}
	return n
}

// SortByModified orders documents newest first, breaking ties by name.
func SortByModified(docs []Metadata) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].ModifiedTime.Equal(docs[j].ModifiedTime) {
			return docs[i].ModifiedTime.After(docs[j].ModifiedTime)
		}
		return docs[i].Name < docs[j].Name
	})
}
