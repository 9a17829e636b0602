package ports

import (
	"context"

	"github.com/aretw0/stateguard/pkg/domain"
)

// ComposeSettings carries the optional arguments of a compose call.
type ComposeSettings struct {
	EditableType string
	ActionParam  bool
	Method       string
	Charset      string
}

// ComposeOption sets one ComposeSettings field.
type ComposeOption func(*ComposeSettings)

// Composer is the capability every state-encoding strategy implements.
// Strategies differ in how a State is represented (kept in a store, or carried by the
// client encrypted) but share the identifier grammar and validation outcomes.
type Composer interface {
	// Compose records value for name on the open State and returns what the client sees.
	Compose(name, value string, editable bool, opts ...ComposeOption) string

	// BeginRequest opens a State for a target and returns its identifier.
	BeginRequest(method, action string) string

	// EndRequest commits the open State and returns its identifier.
	EndRequest(ctx context.Context) (string, error)

	// Restore resolves an identifier issued by this strategy.
	Restore(ctx context.Context, id string) (*domain.State, error)
}
