package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stateguard/pkg/domain"
)

// Store implements ports.PageStore and ports.CookieStore in memory.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	scopes  map[string]*scopeData
	maxSize int
}

type scopeData struct {
	pages   map[string]*domain.Page
	order   []string // insertion order, oldest first
	counter int64
	cookies map[string]string
}

// Option configures the Store.
type Option func(*Store)

// WithMaxPages bounds the number of pages kept per scope.
// When the bound is exceeded the oldest page is evicted. Zero means unbounded.
func WithMaxPages(n int) Option {
	return func(s *Store) {
		s.maxSize = n
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		scopes: make(map[string]*scopeData),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope returns the data of scope, creating it. Caller holds the write lock.
func (s *Store) scope(scope string) *scopeData {
	d, ok := s.scopes[scope]
	if !ok {
		d = &scopeData{
			pages:   make(map[string]*domain.Page),
			cookies: make(map[string]string),
		}
		s.scopes[scope] = d
	}
	return d
}

// SavePage persists a deep copy of the page.
func (s *Store) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	copied := page.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.scope(scope)
	if _, exists := d.pages[page.Name]; !exists {
		d.order = append(d.order, page.Name)
	}
	d.pages[page.Name] = copied

	if s.maxSize > 0 {
		for len(d.order) > s.maxSize {
			oldest := d.order[0]
			d.order = d.order[1:]
			delete(d.pages, oldest)
		}
	}
	return nil
}

// LoadPage returns a copy so callers can't mutate stored pages through the pointer.
func (s *Store) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.scopes[scope]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	page, ok := d.pages[name]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	return page.Clone(), nil
}

// DeletePage removes the page.
func (s *Store) DeletePage(ctx context.Context, scope, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	if _, exists := d.pages[name]; !exists {
		return nil
	}
	delete(d.pages, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListPages returns the live pages of scope, sorted by name.
func (s *Store) ListPages(ctx context.Context, scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.scopes[scope]
	if !ok {
		return []string{}, nil
	}
	names := make([]string, 0, len(d.pages))
	for name := range d.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// NextPageID increments the page counter of scope.
func (s *Store) NextPageID(ctx context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.scope(scope)
	d.counter++
	return d.counter, nil
}

// SaveCookies merges cookies into the fingerprint of scope.
func (s *Store) SaveCookies(ctx context.Context, scope string, cookies map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.scope(scope)
	for k, v := range cookies {
		d.cookies[k] = v
	}
	return nil
}

// LoadCookies returns a copy of the fingerprint of scope.
func (s *Store) LoadCookies(ctx context.Context, scope string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	if d, ok := s.scopes[scope]; ok {
		for k, v := range d.cookies {
			out[k] = v
		}
	}
	return out, nil
}

// Clear drops every page and cookie of scope, as a session expiry would.
func (s *Store) Clear(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
}
