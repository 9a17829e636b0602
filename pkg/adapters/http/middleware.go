package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aretw0/stateguard"
	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/validator"
	"github.com/google/uuid"
)

// DefaultSessionCookie is the cookie carrying the session id.
const DefaultSessionCookie = "STATEGUARD_SESSION"

// ErrNotGuarded is returned by the page helpers outside Middleware.
var ErrNotGuarded = errors.New("request is not guarded")

// ErrorHandler answers a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, res validator.Result)

type options struct {
	cookieName string
	onError    ErrorHandler
	logger     *slog.Logger
}

// Option configures Middleware.
type Option func(*options)

// WithSessionCookieName sets the session cookie name. Default: DefaultSessionCookie.
func WithSessionCookieName(name string) Option {
	return func(o *options) {
		o.cookieName = name
	}
}

// WithErrorHandler replaces the default 403 answer.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Forbidden is the default ErrorHandler.
func Forbidden(w http.ResponseWriter, _ *http.Request, res validator.Result) {
	http.Error(w, fmt.Sprintf("request rejected: %s", res.Reason), http.StatusForbidden)
}

// Middleware validates each request against g and prepares the Composer of its response.
func Middleware(g *stateguard.Guard, opts ...Option) func(http.Handler) http.Handler {
	o := options{
		cookieName: DefaultSessionCookie,
		onError:    Forbidden,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sessionID := o.session(w, r)

			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form", http.StatusBadRequest)
				o.logger.Warn("failed to parse form", "err", err, "path", r.URL.Path)
				return
			}
			submitted := cloneValues(r.Form)
			ajax := r.Header.Get("X-Requested-With") == "XMLHttpRequest"

			res := g.Validate(ctx, validator.Request{
				SessionID: sessionID,
				Method:    r.Method,
				Path:      r.URL.EscapedPath(),
				Params:    cloneValues(r.Form),
				Cookies:   o.cookies(r),
				AJAX:      ajax,
			})
			if !res.IsValid() {
				o.onError(w, r, res)
				return
			}
			rewrite(r, res.Params)

			c, err := g.NewComposer(ctx, stateguard.ComposeRequest{
				SessionID: sessionID,
				Params:    submitted,
				AJAX:      ajax,
			})
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				o.logger.Error("failed to prepare composer", "err", err, "session", sessionID)
				return
			}

			rw := &responseWriter{ResponseWriter: w}
			rw.onHeader = func(h http.Header) {
				set := setCookies(h, o.cookieName)
				if err := g.SaveCookies(ctx, sessionID, set); err != nil {
					o.logger.Error("failed to record response cookies", "err", err, "session", sessionID)
				}
			}

			state := &requestState{
				sessionID:  sessionID,
				stateParam: g.Config().StateParameterName(),
				composer:   c,
			}
			next.ServeHTTP(rw, r.WithContext(withState(ctx, state)))
			rw.flushHeader()

			if err := c.EndPage(ctx); err != nil {
				o.logger.Error("failed to store page", "err", err, "session", sessionID)
			}
		})
	}
}

// session returns the session id of r, issuing a new one when absent.
func (o *options) session(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(o.cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     o.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// cookies returns the request cookies except the session cookie.
func (o *options) cookies(r *http.Request) map[string]string {
	out := make(map[string]string)
	for _, ck := range r.Cookies() {
		if ck.Name != o.cookieName {
			out[ck.Name] = ck.Value
		}
	}
	return out
}

// rewrite replaces the submitted values of r with the validated ones.
func rewrite(r *http.Request, params url.Values) {
	if params == nil {
		params = url.Values{}
	}
	query := r.URL.Query()
	rewritten := url.Values{}
	for name := range query {
		if v, ok := params[name]; ok {
			rewritten[name] = v
		}
	}
	r.URL.RawQuery = rewritten.Encode()

	if r.PostForm != nil {
		post := url.Values{}
		for name := range r.PostForm {
			if v, ok := params[name]; ok {
				post[name] = v
			}
		}
		r.PostForm = post
	}
	r.Form = params
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// setCookies collects the cookies a response sets, skipping deletions and the session cookie.
func setCookies(h http.Header, sessionCookie string) map[string]string {
	out := make(map[string]string)
	for _, line := range h.Values("Set-Cookie") {
		ck, err := http.ParseSetCookie(line)
		if err != nil || ck.Name == sessionCookie || ck.MaxAge < 0 {
			continue
		}
		out[ck.Name] = ck.Value
	}
	return out
}
