package stateguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/adapters/memory"
	"github.com/aretw0/stateguard/pkg/composer"
	"github.com/aretw0/stateguard/pkg/config"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/persistence/middleware"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/aretw0/stateguard/pkg/session"
	"github.com/aretw0/stateguard/pkg/validator"
)

// Guard is the high-level entry point of the library.
// It wires the stores, the composer factory and the validator around one configuration.
type Guard struct {
	cfg      ports.Config
	pages    ports.PageStore
	app      *session.Manager
	cookies  ports.CookieStore
	editable ports.EditablePolicy

	locker      ports.DistributedLocker
	appStore    ports.PageStore
	middlewares []middleware.Middleware

	resolver  *session.Resolver
	validator *validator.Validator
	logger    *slog.Logger
	metrics   ports.MetricsRecorder
}

// Option defines a functional option for configuring the Guard.
type Option func(*Guard)

// WithPageStore sets the store of session pages. Default: in memory.
// If it also implements ports.CookieStore it keeps the cookie fingerprints too.
func WithPageStore(s ports.PageStore) Option {
	return func(g *Guard) {
		g.pages = s
	}
}

// WithApplicationStore sets the store of the long-lived application page. Default: in memory.
func WithApplicationStore(s ports.PageStore) Option {
	return func(g *Guard) {
		g.appStore = s
	}
}

// WithCookieStore sets the store of cookie fingerprints.
func WithCookieStore(s ports.CookieStore) Option {
	return func(g *Guard) {
		g.cookies = s
	}
}

// WithLocker serializes application page writes across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(g *Guard) {
		g.locker = l
	}
}

// WithStoreMiddleware decorates the session and application page stores.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(g *Guard) {
		g.middlewares = append(g.middlewares, mws...)
	}
}

// WithEditablePolicy sets the checker of editable values.
func WithEditablePolicy(p ports.EditablePolicy) Option {
	return func(g *Guard) {
		g.editable = p
	}
}

// WithLogger sets a custom structured logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets a metrics recorder.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// New creates a Guard. A nil cfg uses config.Default().
func New(cfg ports.Config, opts ...Option) *Guard {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Guard{
		cfg:     cfg,
		logger:  logging.NewNop(),
		metrics: ports.NopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.pages == nil {
		g.pages = memory.NewStore()
	}
	if g.cookies == nil {
		if cs, ok := g.pages.(ports.CookieStore); ok {
			g.cookies = cs
		}
	}
	if g.appStore == nil {
		g.appStore = memory.NewStore()
	}
	if len(g.middlewares) > 0 {
		g.pages = middleware.Chain(g.pages, g.middlewares...)
		g.appStore = middleware.Chain(g.appStore, g.middlewares...)
	}

	managerOpts := []session.Option{session.WithLogger(g.logger)}
	if g.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(g.locker))
	}
	g.app = session.NewManager(g.appStore, managerOpts...)
	g.resolver = session.NewResolver(g.pages, g.app, cfg.ScopeMarker())

	validatorOpts := []validator.Option{
		validator.WithLogger(g.logger),
		validator.WithMetrics(g.metrics),
	}
	if g.cookies != nil {
		validatorOpts = append(validatorOpts, validator.WithCookieStore(g.cookies))
	}
	if g.editable != nil {
		validatorOpts = append(validatorOpts, validator.WithEditablePolicy(g.editable))
	}
	g.validator = validator.New(cfg, g.resolver, validatorOpts...)
	return g
}

// Config returns the configuration.
func (g *Guard) Config() ports.Config {
	return g.cfg
}

// Pages returns the session page store, middlewares included.
func (g *Guard) Pages() ports.PageStore {
	return g.pages
}

// Validate checks an inbound request.
func (g *Guard) Validate(ctx context.Context, req validator.Request) validator.Result {
	return g.validator.Validate(ctx, req)
}

// ComposeRequest describes the request whose response is about to be rendered.
type ComposeRequest struct {
	SessionID string
	Params    url.Values
	AJAX      bool
}

// NewComposer prepares a Composer for the response to req.
//
// A request carrying the modify-state parameter reopens that State, so new values extend
// it under the same identifier. An AJAX request, when page reuse is enabled, continues the
// page it was issued from. Anything else starts a fresh page.
func (g *Guard) NewComposer(ctx context.Context, req ComposeRequest) (*composer.Composer, error) {
	c := composer.New(g.cfg, g.pages, req.SessionID,
		composer.WithScopeUpdater(g.app),
		composer.WithLogger(g.logger),
		composer.WithMetrics(g.metrics),
	)

	if id := req.Params.Get(g.cfg.ModifyStateParameterName()); id != "" {
		page, state, err := g.resolver.Resolve(ctx, req.SessionID, id)
		if err == nil && page.Name != g.cfg.ScopeMarker() {
			c.ResumePage(page)
			c.BeginExisting(state)
			return c, nil
		}
		g.logger.Debug("modify-state identifier not resumable", "id", id, "err", err)
	}

	var parent string
	if req.AJAX {
		if id := req.Params.Get(g.cfg.StateParameterName()); id != "" {
			page, _, err := g.resolver.Resolve(ctx, req.SessionID, id)
			switch {
			case err == nil && page.Name == g.cfg.ScopeMarker():
				// The application page is never extended by a session.
			case err == nil && g.cfg.ReuseExistingPageInAjaxRequest():
				c.ResumePage(page)
				return c, nil
			case err == nil:
				parent = page.Name
			case !isNotFound(err):
				g.logger.Warn("failed to resolve AJAX origin page", "id", id, "err", err)
			}
		}
	}

	if err := c.StartPage(ctx); err != nil {
		return nil, fmt.Errorf("failed to start page: %w", err)
	}
	c.Page().Parent = parent
	return c, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrPageNotFound) ||
		errors.Is(err, domain.ErrStateNotFound) ||
		errors.Is(err, domain.ErrMalformedStateID)
}

// SaveCookies records the cookies a response set for the session.
func (g *Guard) SaveCookies(ctx context.Context, sessionID string, cookies map[string]string) error {
	if g.cookies == nil || len(cookies) == 0 {
		return nil
	}
	if err := g.cookies.SaveCookies(ctx, sessionID, cookies); err != nil {
		return fmt.Errorf("failed to save cookie fingerprint: %w", err)
	}
	return nil
}

// DiscardPage removes a session page. Application states are never affected.
func (g *Guard) DiscardPage(ctx context.Context, sessionID, name string) error {
	if name == g.cfg.ScopeMarker() {
		return nil
	}
	return g.pages.DeletePage(ctx, sessionID, name)
}
