package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
)

// Resolver finds the page and state an identifier points to, in the session scope or,
// for identifiers carrying the scope marker, in the application store.
type Resolver struct {
	pages  ports.PageStore
	app    ports.PageStore
	marker string
}

// NewResolver creates a Resolver. app may be nil when no long-lived scope is used.
func NewResolver(pages, app ports.PageStore, marker string) *Resolver {
	return &Resolver{pages: pages, app: app, marker: marker}
}

// Resolve parses raw and loads what it addresses. Checks run in order: grammar, page,
// token, state. It returns copies.
//
// Errors: domain.ErrMalformedStateID (grammar or token), domain.ErrPageNotFound,
// domain.ErrStateNotFound, or a wrapped store error.
func (r *Resolver) Resolve(ctx context.Context, scope, raw string) (*domain.Page, *domain.State, error) {
	id, err := domain.ParseStateID(raw)
	if err != nil {
		return nil, nil, err
	}

	page, err := r.load(ctx, scope, id)
	if err != nil {
		return nil, nil, err
	}

	if id.Token == "" || id.Token != page.Token {
		return page, nil, fmt.Errorf("%w: token does not match page %s", domain.ErrMalformedStateID, page.Name)
	}

	state, ok := page.State(id.State)
	if !ok {
		return page, nil, fmt.Errorf("%w: %d in page %s", domain.ErrStateNotFound, id.State, page.Name)
	}
	return page, state, nil
}

func (r *Resolver) load(ctx context.Context, scope string, id domain.StateID) (*domain.Page, error) {
	store, storeScope := r.pages, scope
	if id.InScope(r.marker) {
		if r.app == nil {
			return nil, domain.ErrPageNotFound
		}
		store, storeScope = r.app, ports.ApplicationScope
	}

	page, err := store.LoadPage(ctx, storeScope, id.Page)
	if err != nil {
		if errors.Is(err, domain.ErrPageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load page %s: %w", id.Page, err)
	}
	return page, nil
}
