package composer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/aretw0/stateguard/pkg/session"
	"github.com/google/uuid"
)

// ScopeUpdater performs a locked read-modify-write of a stored page.
// session.Manager implements it.
type ScopeUpdater interface {
	Update(ctx context.Context, scope, name string, fn func(*domain.Page) (*domain.Page, error)) error
	ports.PageStore
}

// frame is an open State on the stack.
type frame struct {
	state    *domain.State
	scoped   bool
	existing bool
}

// Composer builds the States of one rendered page. It is not safe for concurrent use.
type Composer struct {
	cfg   ports.Config
	store ports.PageStore
	scope string

	app     ScopeUpdater
	logger  *slog.Logger
	metrics ports.MetricsRecorder
	token   func() string

	page   *domain.Page
	stack  []frame
	nextID int
	dirty  bool

	inScope bool
}

var _ ports.Composer = (*Composer)(nil)

// New creates a Composer storing pages of scope (usually the session id) in store.
func New(cfg ports.Config, store ports.PageStore, scope string, opts ...Option) *Composer {
	c := &Composer{
		cfg:     cfg,
		store:   store,
		scope:   scope,
		logger:  logging.NewNop(),
		metrics: ports.NopRecorder{},
		token:   randomToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func randomToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Page returns the page under construction, or nil before StartPage.
func (c *Composer) Page() *domain.Page {
	return c.page
}

// StartPage creates a fresh page with the next page id of the scope and a new token.
func (c *Composer) StartPage(ctx context.Context) error {
	n, err := c.store.NextPageID(ctx, c.scope)
	if err != nil {
		return fmt.Errorf("failed to allocate page id: %w", err)
	}
	c.page = domain.NewPage(strconv.FormatInt(n, 10), c.token())
	c.reset()
	c.logger.Debug("page started", "scope", c.scope, "page", c.page.Name)
	return nil
}

// ResumePage continues an existing page: new States get ids after the last committed one.
func (c *Composer) ResumePage(page *domain.Page) {
	c.page = page
	c.reset()
	c.nextID = page.NextStateID
	c.logger.Debug("page resumed", "scope", c.scope, "page", page.Name, "next_state", c.nextID)
}

func (c *Composer) reset() {
	c.stack = c.stack[:0]
	c.nextID = 0
	c.dirty = false
	c.inScope = false
}

// FlowID stamps a flow id on the page.
func (c *Composer) FlowID(id string) {
	if c.page != nil {
		c.page.FlowID = id
	}
}

// StartScope routes the next BeginRequest calls to the named long-lived scope.
// Only the application scope ("application" or "app") exists; any other name
// returns to page scope.
func (c *Composer) StartScope(name string) {
	if !ports.IsApplicationScope(name) {
		c.logger.Warn("unknown scope, states stay page scoped", "scope", name)
		c.inScope = false
		return
	}
	c.inScope = c.app != nil
}

// EndScope returns to page scope.
func (c *Composer) EndScope() {
	c.inScope = false
}

// BeginRequest opens a State for the target and returns its identifier.
// A State opened in the application scope gets its id when EndRequest appends it
// to the shared page, so BeginRequest returns an empty identifier for it.
func (c *Composer) BeginRequest(method, action string) string {
	state := domain.NewState(c.nextID, strings.ToUpper(method), DecodeAction(action))
	if c.inScope {
		state.ID = -1
		c.stack = append(c.stack, frame{state: state, scoped: true})
		return ""
	}
	c.nextID++
	c.stack = append(c.stack, frame{state: state})
	return c.identifier(state.ID)
}

// BeginExisting reopens a committed State so that new values extend it.
// Its id is kept and EndRequest replaces it in the page.
func (c *Composer) BeginExisting(state *domain.State) string {
	s := state.Clone()
	if s.ID >= c.nextID {
		c.nextID = s.ID + 1
	}
	c.stack = append(c.stack, frame{state: s, existing: true})
	return c.identifier(s.ID)
}

// IsRequestStarted reports whether a State is open.
func (c *Composer) IsRequestStarted() bool {
	return len(c.stack) > 0
}

func (c *Composer) identifier(stateID int) string {
	if c.page == nil {
		return ""
	}
	return domain.StateID{Page: c.page.Name, State: stateID, Token: c.page.Token}.String()
}

func (c *Composer) top() *domain.State {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1].state
}

// Compose records value for name on the open State and returns what the client must send
// back: the confidential index, or value itself. Without an open State it returns value.
func (c *Composer) Compose(name, value string, editable bool, opts ...ports.ComposeOption) string {
	state := c.top()
	if state == nil {
		return value
	}

	settings := ports.ComposeSettings{Method: "GET", Charset: c.cfg.Charset()}
	for _, opt := range opts {
		opt(&settings)
	}

	p := c.composeParameter(state, name, DecodeValue(value, settings.Charset), editable, settings)
	if !p.Editable && c.isConfidential(state.Action, name) {
		return p.ConfidentialValue()
	}
	return value
}

func (c *Composer) composeParameter(state *domain.State, name, decoded string, editable bool, settings ports.ComposeSettings) *domain.Parameter {
	if p := state.Parameter(name); p != nil {
		p.AddValue(decoded)
		return p
	}
	p := domain.NewParameter(name, decoded, editable, settings.EditableType, settings.ActionParam)
	state.AddParameter(p)
	return p
}

func (c *Composer) isConfidential(action, name string) bool {
	switch {
	case !c.cfg.Confidentiality():
		return false
	case c.cfg.IsStartParameter(name):
		return false
	case c.cfg.IsParameterWithoutValidation(action, name):
		return false
	case c.cfg.IsParameterWithoutConfidentiality(name):
		return false
	case c.cfg.IsStartAction(action):
		return false
	}
	return true
}

// ComposeParams composes every pair of a query string as action parameters of the open
// State and returns the query the client must use. "&amp;" separators are accepted.
//
//	ComposeParams("param1=val1&param2=val2", "GET", "UTF-8") // "param1=0&param2=0"
func (c *Composer) ComposeParams(query, method, charset string) string {
	state := c.top()
	if state == nil || query == "" {
		return query
	}

	query = strings.ReplaceAll(query, "&amp;", "&")
	state.Params = query
	if charset == "" {
		charset = c.cfg.Charset()
	}

	pairs := strings.Split(query, "&")
	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(pair, "=")
		name := DecodeValue(rawName, charset)
		v := c.Compose(name, rawValue, false, AsActionParam(), WithMethod(method), WithCharset(charset))
		out = append(out, rawName+"="+v)
	}
	return strings.Join(out, "&")
}

// MergeParameters copies every value recorded for oldName into newName.
func (c *Composer) MergeParameters(oldName, newName string) {
	state := c.top()
	if state == nil {
		return
	}
	stored := state.Parameter(oldName)
	if stored == nil || stored.Count() == 0 {
		return
	}
	settings := ports.ComposeSettings{}
	for _, v := range stored.Values {
		c.composeParameter(state, newName, v, false, settings)
	}
}

// EndRequest commits the open State and returns its identifier.
// The page is persisted when it receives its first State or when a State was replaced;
// other States reach the store with EndPage.
func (c *Composer) EndRequest(ctx context.Context) (string, error) {
	if len(c.stack) == 0 {
		return "", domain.ErrNoOpenState
	}
	f := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	if f.scoped {
		return c.commitScoped(ctx, f.state)
	}
	if c.page == nil {
		return "", domain.ErrNoPage
	}

	f.state.PageID = c.page.Name
	c.page.AddState(f.state)
	c.dirty = true
	c.metrics.StateComposed("page", len(f.state.Parameters))

	if c.page.StatesCount() == 1 || f.existing {
		if err := c.save(ctx); err != nil {
			return "", err
		}
	}
	return c.identifier(f.state.ID), nil
}

func (c *Composer) commitScoped(ctx context.Context, state *domain.State) (string, error) {
	marker := c.cfg.ScopeMarker()
	var id string
	err := c.app.Update(ctx, ports.ApplicationScope, marker, func(page *domain.Page) (*domain.Page, error) {
		if page == nil {
			page = domain.NewPage(marker, c.token())
		}
		state.ID = page.NextStateID
		state.PageID = marker
		page.AddState(state)
		id = domain.StateID{Page: marker, State: state.ID, Token: page.Token}.String()
		return page, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to append application state: %w", err)
	}
	c.metrics.StateComposed("application", len(state.Parameters))
	c.logger.Debug("application state committed", "id", id, "action", state.Action)
	return id, nil
}

func (c *Composer) save(ctx context.Context) error {
	if err := c.store.SavePage(ctx, c.scope, c.page); err != nil {
		return fmt.Errorf("failed to save page %s: %w", c.page.Name, err)
	}
	c.dirty = false
	c.metrics.PageStored()
	return nil
}

// EndPage closes every State left open and persists the page if it holds any State.
func (c *Composer) EndPage(ctx context.Context) error {
	for len(c.stack) > 0 {
		if _, err := c.EndRequest(ctx); err != nil {
			return err
		}
	}
	if c.page == nil || c.page.StatesCount() == 0 {
		if c.page != nil {
			c.logger.Debug("page has no states, not stored", "page", c.page.Name)
		}
		return nil
	}
	if !c.dirty {
		return nil
	}
	return c.save(ctx)
}

// Restore resolves an identifier issued for this composer's scope.
func (c *Composer) Restore(ctx context.Context, id string) (*domain.State, error) {
	var app ports.PageStore
	if c.app != nil {
		app = c.app
	}
	_, state, err := session.NewResolver(c.store, app, c.cfg.ScopeMarker()).Resolve(ctx, c.scope, id)
	if err != nil {
		return nil, err
	}
	return state, nil
}
