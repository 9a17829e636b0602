package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
)

// MockStore is a map-based implementation of PageStore for testing purposes.
type MockStore struct {
	mu      sync.Mutex
	data    map[string]map[string]*domain.Page
	counter map[string]int64
	cookies map[string]map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{
		data:    make(map[string]map[string]*domain.Page),
		counter: make(map[string]int64),
		cookies: make(map[string]map[string]string),
	}
}

func (m *MockStore) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[scope] == nil {
		m.data[scope] = make(map[string]*domain.Page)
	}
	// Clone to simulate serialization
	m.data[scope][page.Name] = page.Clone()
	return nil
}

func (m *MockStore) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.data[scope][name]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	return page.Clone(), nil
}

func (m *MockStore) DeletePage(ctx context.Context, scope, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[scope], name)
	return nil
}

func (m *MockStore) ListPages(ctx context.Context, scope string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.data[scope]))
	for name := range m.data[scope] {
		names = append(names, name)
	}
	return names, nil
}

func (m *MockStore) NextPageID(ctx context.Context, scope string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter[scope]++
	return m.counter[scope], nil
}

func (m *MockStore) SaveCookies(ctx context.Context, scope string, cookies map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cookies[scope] == nil {
		m.cookies[scope] = make(map[string]string)
	}
	for k, v := range cookies {
		m.cookies[scope][k] = v
	}
	return nil
}

func (m *MockStore) LoadCookies(ctx context.Context, scope string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.cookies[scope]))
	for k, v := range m.cookies[scope] {
		out[k] = v
	}
	return out, nil
}

var (
	_ ports.PageStore   = (*MockStore)(nil)
	_ ports.CookieStore = (*MockStore)(nil)
)

func TestPageStore_Contract(t *testing.T) {
	// This test verifies that the MockStore complies with the PageStore logic.
	// It serves as a contract test for future implementations (Adapters).
	ports.RunPageStoreContract(t, NewMockStore())
}

func TestCookieStore_Contract(t *testing.T) {
	ports.RunCookieStoreContract(t, NewMockStore())
}
