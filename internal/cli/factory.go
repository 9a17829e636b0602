package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/stateguard"
	"github.com/aretw0/stateguard/pkg/adapters/file"
	"github.com/aretw0/stateguard/pkg/adapters/memory"
	"github.com/aretw0/stateguard/pkg/adapters/redis"
	"github.com/aretw0/stateguard/pkg/config"
	"github.com/aretw0/stateguard/pkg/editable"
	"github.com/aretw0/stateguard/pkg/persistence/middleware"
	"github.com/aretw0/stateguard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Stores are the backends selected by a configuration.
type Stores struct {
	Pages   ports.PageStore
	App     ports.PageStore
	Cookies ports.CookieStore
	Locker  ports.DistributedLocker

	close func() error
}

// Close releases the backend connections.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores builds the stores named by cfg.Store.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "", "memory":
		var opts []memory.Option
		if cfg.MaxPages > 0 {
			opts = append(opts, memory.WithMaxPages(cfg.MaxPages))
		}
		pages := memory.NewStore(opts...)
		return &Stores{Pages: pages, App: memory.NewStore(), Cookies: pages}, nil

	case "file":
		base := cfg.Path
		if base == "" {
			base = filepath.Join(".stateguard", "pages")
		}
		// Cookie fingerprints are per process: the file backend keeps none.
		return &Stores{Pages: file.New(base), App: file.New(base), Cookies: memory.NewStore()}, nil

	case "redis":
		client := backend.NewClient(&backend.Options{Addr: cfg.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
		}
		return NewRedisStores(client, cfg), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// NewRedisStores builds stores sharing client. Application pages never expire.
func NewRedisStores(client *backend.Client, cfg config.StoreConfig) *Stores {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stateguard:"
	}
	opts := []redis.Option{redis.WithPrefix(prefix)}
	if cfg.TTL > 0 {
		opts = append(opts, redis.WithTTL(cfg.TTL))
	}
	pages := redis.NewFromClient(client, opts...)
	return &Stores{
		Pages:   pages,
		App:     redis.NewFromClient(client, redis.WithPrefix(prefix)),
		Cookies: pages,
		Locker:  redis.NewLocker(client, prefix),
		close:   client.Close,
	}
}

// StoreMiddlewares returns the middlewares enabled by the keys of cfg.
// Encryption is outermost, so the MAC covers the sealed envelope.
func StoreMiddlewares(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	active, previous, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: previous,
		}))
	}
	if cfg.IntegrityKey != "" {
		mws = append(mws, middleware.NewIntegrityMiddleware([]byte(cfg.IntegrityKey)))
	}
	return mws, nil
}

// NewGuard builds a Guard and its stores from cfg.
func NewGuard(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics ports.MetricsRecorder) (*stateguard.Guard, *Stores, error) {
	stores, err := OpenStores(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	mws, err := StoreMiddlewares(cfg.Store)
	if err != nil {
		_ = stores.Close()
		return nil, nil, err
	}
	policy, err := editable.FromConfig(cfg.Editable)
	if err != nil {
		_ = stores.Close()
		return nil, nil, err
	}

	opts := []stateguard.Option{
		stateguard.WithPageStore(stores.Pages),
		stateguard.WithApplicationStore(stores.App),
		stateguard.WithCookieStore(stores.Cookies),
		stateguard.WithStoreMiddleware(mws...),
		stateguard.WithEditablePolicy(policy),
		stateguard.WithLogger(logger),
	}
	if stores.Locker != nil {
		opts = append(opts, stateguard.WithLocker(stores.Locker))
	}
	if metrics != nil {
		opts = append(opts, stateguard.WithMetrics(metrics))
	}
	return stateguard.New(cfg, opts...), stores, nil
}
