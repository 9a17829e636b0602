package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stateguard/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the index score of pages stored without expiration (2100-01-01).
const farFuture = 4102444800

// Store implements ports.PageStore and ports.CookieStore using Redis.
//
// Layout per scope:
//
//	<prefix><scope>:page:<name>  page JSON (with TTL)
//	<prefix><scope>:index        ZSET of page names scored by expiry
//	<prefix><scope>:counter      page id counter (INCR)
//	<prefix><scope>:cookies      HASH of cookie fingerprints
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for pages. Every save refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "stateguard:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) pageKey(scope, name string) string {
	return s.prefix + scope + ":page:" + name
}

func (s *Store) indexKey(scope string) string {
	return s.prefix + scope + ":index"
}

func (s *Store) counterKey(scope string) string {
	return s.prefix + scope + ":counter"
}

func (s *Store) cookiesKey(scope string) string {
	return s.prefix + scope + ":cookies"
}

// SavePage persists the page JSON and indexes it.
func (s *Store) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}

	pipe := s.client.Pipeline()

	pipe.Set(ctx, s.pageKey(scope, page.Name), data, s.ttl)

	// Score = Now + TTL, so List can prune expired members lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}
	pipe.ZAdd(ctx, s.indexKey(scope), backend.Z{
		Score:  score,
		Member: page.Name,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(scope), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save page to redis: %w", err)
	}
	return nil
}

// LoadPage retrieves the page from Redis.
func (s *Store) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	val, err := s.client.Get(ctx, s.pageKey(scope, name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page from redis: %w", err)
	}

	var page domain.Page
	if err := json.Unmarshal(val, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page: %w", err)
	}
	return &page, nil
}

// DeletePage removes the page and its index entry.
func (s *Store) DeletePage(ctx context.Context, scope, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.pageKey(scope, name))
	pipe.ZRem(ctx, s.indexKey(scope), name)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete page from redis: %w", err)
	}
	return nil
}

// ListPages returns live pages, pruning expired index members first.
func (s *Store) ListPages(ctx context.Context, scope string) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(scope), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired pages: %w", err)
	}

	pages, err := s.client.ZRange(ctx, s.indexKey(scope), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// NextPageID increments the page counter of scope atomically.
func (s *Store) NextPageID(ctx context.Context, scope string) (int64, error) {
	id, err := s.client.Incr(ctx, s.counterKey(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment page counter: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.counterKey(scope), s.ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to refresh page counter ttl: %w", err)
		}
	}
	return id, nil
}

// SaveCookies merges cookies into the fingerprint hash.
func (s *Store) SaveCookies(ctx context.Context, scope string, cookies map[string]string) error {
	if len(cookies) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(cookies))
	for k, v := range cookies {
		values[k] = v
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.cookiesKey(scope), values)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.cookiesKey(scope), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cookies to redis: %w", err)
	}
	return nil
}

// LoadCookies returns the fingerprint hash. A missing hash is an empty map.
func (s *Store) LoadCookies(ctx context.Context, scope string) (map[string]string, error) {
	cookies, err := s.client.HGetAll(ctx, s.cookiesKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies from redis: %w", err)
	}
	return cookies, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
