package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates page access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.PageStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

var _ ports.PageStore = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiration of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given page store.
func NewManager(store ports.PageStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func lockKey(scope, name string) string {
	return scope + ":" + name
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// SavePage persists the page under its lock.
func (m *Manager) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	return m.WithLock(ctx, lockKey(scope, page.Name), func(ctx context.Context) error {
		return m.store.SavePage(ctx, scope, page)
	})
}

// LoadPage delegates to the store. Stores return copies, so reads take no lock.
func (m *Manager) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	return m.store.LoadPage(ctx, scope, name)
}

// DeletePage removes the page under its lock.
func (m *Manager) DeletePage(ctx context.Context, scope, name string) error {
	return m.WithLock(ctx, lockKey(scope, name), func(ctx context.Context) error {
		return m.store.DeletePage(ctx, scope, name)
	})
}

// ListPages delegates to the store.
func (m *Manager) ListPages(ctx context.Context, scope string) ([]string, error) {
	return m.store.ListPages(ctx, scope)
}

// NextPageID delegates to the store.
func (m *Manager) NextPageID(ctx context.Context, scope string) (int64, error) {
	return m.store.NextPageID(ctx, scope)
}

// Update loads a page, hands it to fn and saves what fn returns, all under the page lock.
// fn receives nil when the page does not exist yet.
func (m *Manager) Update(ctx context.Context, scope, name string, fn func(*domain.Page) (*domain.Page, error)) error {
	return m.WithLock(ctx, lockKey(scope, name), func(ctx context.Context) error {
		page, err := m.store.LoadPage(ctx, scope, name)
		if err != nil {
			if !errors.Is(err, domain.ErrPageNotFound) {
				return fmt.Errorf("failed to load page %s: %w", name, err)
			}
			page = nil
		}

		updated, err := fn(page)
		if err != nil {
			return err
		}
		if updated == nil {
			return nil
		}
		if err := m.store.SavePage(ctx, scope, updated); err != nil {
			return fmt.Errorf("failed to save page %s: %w", name, err)
		}
		return nil
	})
}

// Store returns the underlying page store.
func (m *Manager) Store() ports.PageStore {
	return m.store
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
