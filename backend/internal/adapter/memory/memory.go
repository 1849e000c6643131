package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jun/markpad/backend/internal/adapter"
)

// Store implements adapter.DocumentStore with an in-memory map.
// It backs the tests and DEV_MODE without DynamoDB.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*adapter.Document
	now  func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]*adapter.Document),
		now:  time.Now,
	}
}

func (s *Store) List(ctx context.Context) ([]adapter.Metadata, error) {
	return s.filter(func(*adapter.Document) bool { return true }), nil
}

func (s *Store) Get(ctx context.Context, id string) (*adapter.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	out := *d
	out.Content = append([]byte(nil), d.Content...)
	return &out, nil
}

func (s *Store) Create(ctx context.Context, name string, content []byte) (*adapter.Metadata, error) {
	if err := adapter.CheckName(name); err != nil {
		return nil, err
	}
	if err := adapter.CheckContent(content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(name, content)
}

// insert stores a new document. The caller holds s.mu.
func (s *Store) insert(name string, content []byte) (*adapter.Metadata, error) {
	if len(s.docs) >= adapter.MaxDocuments {
		return nil, adapter.ErrLimitReached
	}
	d := &adapter.Document{
		Metadata: adapter.Metadata{
			ID:           uuid.New().String(),
			Name:         name,
			ModifiedTime: s.now(),
			Size:         int64(len(content)),
			ETag:         uuid.New().String(),
		},
		Content: append([]byte(nil), content...),
	}
	s.docs[d.ID] = d
	meta := d.Metadata
	return &meta, nil
}

func (s *Store) Save(ctx context.Context, id string, content []byte, etag string) (*adapter.Metadata, error) {
	if err := adapter.CheckContent(content); err != nil {
		return nil, err
	}
	return s.update(id, func(d *adapter.Document) error {
		if etag != "" && d.ETag != etag {
			return adapter.ErrPreconditionFailed
		}
		d.Content = append([]byte(nil), content...)
		d.Size = int64(len(content))
		d.ETag = uuid.New().String()
		return nil
	})
}

func (s *Store) Rename(ctx context.Context, id, name string) (*adapter.Metadata, error) {
	if err := adapter.CheckName(name); err != nil {
		return nil, err
	}
	return s.update(id, func(d *adapter.Document) error {
		d.Name = name
		return nil
	})
}

func (s *Store) SetStarred(ctx context.Context, id string, starred bool) (*adapter.Metadata, error) {
	return s.update(id, func(d *adapter.Document) error {
		d.Starred = starred
		return nil
	})
}

func (s *Store) update(id string, fn func(*adapter.Document) error) (*adapter.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	next := *d
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ModifiedTime = s.now()
	s.docs[id] = &next
	meta := next.Metadata
	return &meta, nil
}

func (s *Store) Duplicate(ctx context.Context, id string) (*adapter.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return s.insert(adapter.CopyName(d.Name), d.Content)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return adapter.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) ListStarred(ctx context.Context) ([]adapter.Metadata, error) {
	return s.filter(func(d *adapter.Document) bool { return d.Starred }), nil
}

func (s *Store) Search(ctx context.Context, query string) ([]adapter.Metadata, error) {
	return s.filter(func(d *adapter.Document) bool { return adapter.Matches(d.Name, d.Content, query) }), nil
}

func (s *Store) filter(keep func(*adapter.Document) bool) []adapter.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]adapter.Metadata, 0, len(s.docs))
	for _, d := range s.docs {
		if keep(d) {
			out = append(out, d.Metadata)
		}
	}
	adapter.SortByModified(out)
	return out
}

// Provider hands out one Store per user.
type Provider struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewProvider creates a Provider with no users.
func NewProvider() *Provider {
	return &Provider{stores: make(map[string]*Store)}
}

func (p *Provider) GetStore(ctx context.Context, userID string) (adapter.DocumentStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stores[userID]
	if !ok {
		s = NewStore()
		p.stores[userID] = s
	}
	return s, nil
}

// Users returns the IDs of users that have a store.
func (p *Provider) Users() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.stores))
	for id := range p.stores {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
