package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/stateguard/pkg/composer"
)

type ctxKey struct{}

// requestState is what Middleware attaches to a guarded request.
type requestState struct {
	sessionID  string
	stateParam string
	composer   *composer.Composer
}

func withState(ctx context.Context, s *requestState) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func stateFrom(ctx context.Context) (*requestState, bool) {
	s, ok := ctx.Value(ctxKey{}).(*requestState)
	return s, ok
}

// ComposerFromContext returns the Composer of the page being rendered.
func ComposerFromContext(ctx context.Context) (*composer.Composer, bool) {
	s, ok := stateFrom(ctx)
	if !ok {
		return nil, false
	}
	return s.composer, true
}

// SessionFromContext returns the session id of a guarded request.
func SessionFromContext(ctx context.Context) (string, bool) {
	s, ok := stateFrom(ctx)
	if !ok {
		return "", false
	}
	return s.sessionID, true
}

// Link records target as a link of the current page and returns the URL to emit.
// Query values are replaced by what the client must send back and the state
// parameter is appended.
//
//	Link(r, "/items?id=42") // "/items?id=0&_STATE_=3-0-9f2c..."
func Link(r *http.Request, target string) (string, error) {
	s, ok := stateFrom(r.Context())
	if !ok {
		return "", ErrNotGuarded
	}
	path, query, _ := strings.Cut(target, "?")
	c := s.composer

	c.BeginRequest(http.MethodGet, path)
	composed := c.ComposeParams(query, http.MethodGet, "")
	id, err := c.EndRequest(r.Context())
	if err != nil {
		return "", fmt.Errorf("failed to record link %q: %w", path, err)
	}

	out := path + "?"
	if composed != "" {
		out += composed + "&"
	}
	return out + s.stateParam + "=" + url.QueryEscape(id), nil
}

// BeginForm opens a form State and returns the value of its hidden state field.
// It is empty for the application scope, whose id is known only at EndForm.
func BeginForm(r *http.Request, method, action string) (string, error) {
	s, ok := stateFrom(r.Context())
	if !ok {
		return "", ErrNotGuarded
	}
	return s.composer.BeginRequest(method, action), nil
}

// Field records a non-editable value of the open form and returns the value to render.
func Field(r *http.Request, name, value string) string {
	s, ok := stateFrom(r.Context())
	if !ok {
		return value
	}
	return s.composer.Compose(name, value, false)
}

// EditableField records a field the user types into.
func EditableField(r *http.Request, name, editableType string) {
	s, ok := stateFrom(r.Context())
	if !ok {
		return
	}
	s.composer.Compose(name, "", true, composer.WithEditableType(editableType))
}

// EndForm commits the open form State and returns its identifier.
func EndForm(r *http.Request) (string, error) {
	s, ok := stateFrom(r.Context())
	if !ok {
		return "", ErrNotGuarded
	}
	return s.composer.EndRequest(r.Context())
}

// StateParameter returns the name of the hidden state field.
func StateParameter(r *http.Request) string {
	s, ok := stateFrom(r.Context())
	if !ok {
		return ""
	}
	return s.stateParam
}
