package http

import (
	"encoding/json"
	"net/http"

	"github.com/aretw0/stateguard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a chi router serving /health unguarded and the routes
// registered by mount behind Middleware.
func NewRouter(g *stateguard.Guard, mount func(chi.Router), opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(Middleware(g, opts...))
		mount(r)
	})
	return r
}
