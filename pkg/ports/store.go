package ports

import (
	"context"

	"github.com/aretw0/stateguard/pkg/domain"
)

// PageStore persists rendered pages.
// A scope is the lifetime class of the pages it holds, usually a session id.
type PageStore interface {
	// SavePage persists the page under page.Name within scope. Last write wins.
	SavePage(ctx context.Context, scope string, page *domain.Page) error

	// LoadPage retrieves a page.
	// Returns domain.ErrPageNotFound if the page does not exist or has expired.
	LoadPage(ctx context.Context, scope, name string) (*domain.Page, error)

	// DeletePage removes a page. Deleting a missing page is not an error.
	DeletePage(ctx context.Context, scope, name string) error

	// ListPages returns the names of the live pages of scope.
	ListPages(ctx context.Context, scope string) ([]string, error)

	// NextPageID returns a fresh page id for scope, increasing by one on every call.
	NextPageID(ctx context.Context, scope string) (int64, error)
}

// CookieStore keeps the cookies a response set, so that later requests can be
// compared against them.
type CookieStore interface {
	// SaveCookies merges cookies into the fingerprint of scope.
	SaveCookies(ctx context.Context, scope string, cookies map[string]string) error

	// LoadCookies returns the fingerprint of scope. An unknown scope yields an empty map.
	LoadCookies(ctx context.Context, scope string) (map[string]string, error)
}
