package cli

import (
	"html/template"
	"log/slog"
	"net/http"

	guardhttp "github.com/aretw0/stateguard/pkg/adapters/http"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// DemoEntry is the unguarded entry page of the demo application.
const DemoEntry = "/"

var demoPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>stateguard demo</title></head>
<body>
{{if .Message}}<p><strong>{{.Message}}</strong></p>{{end}}
<ul>
  <li><a href="{{.Books}}">Books</a></li>
  <li><a href="{{.Music}}">Music</a></li>
  <li><a href="{{.About}}">About (application link)</a></li>
</ul>
<form method="POST" action="/order">
  <input type="hidden" name="{{.StateParam}}" value="{{.FormState}}">
  <input type="hidden" name="product" value="{{.Product}}">
  <textarea name="note"></textarea>
  <button type="submit">Order</button>
</form>
</body>
</html>
`))

type demoView struct {
	Message    string
	Books      string
	Music      string
	About      string
	StateParam string
	FormState  string
	Product    string
}

// DemoRoutes mounts a small catalogue whose links and form are protected by the guard.
func DemoRoutes(logger *slog.Logger) func(chi.Router) {
	render := func(w http.ResponseWriter, r *http.Request, message string) {
		view, err := buildView(r, message)
		if err != nil {
			logger.Error("failed to compose demo page", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := demoPage.Execute(w, view); err != nil {
			logger.Error("failed to render demo page", "err", err)
		}
	}

	return func(r chi.Router) {
		r.Get(DemoEntry, func(w http.ResponseWriter, r *http.Request) {
			render(w, r, "")
		})
		r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
			render(w, r, "Browsing "+r.URL.Query().Get("category"))
		})
		r.Post("/order", func(w http.ResponseWriter, r *http.Request) {
			render(w, r, "Ordered "+r.PostFormValue("product")+": "+r.PostFormValue("note"))
		})
		r.Get("/about", func(w http.ResponseWriter, r *http.Request) {
			render(w, r, "stateguard keeps request parameters honest.")
		})
	}
}

func buildView(r *http.Request, message string) (demoView, error) {
	v := demoView{Message: message, StateParam: guardhttp.StateParameter(r)}
	var err error

	if v.Books, err = guardhttp.Link(r, "/products?category=books"); err != nil {
		return v, err
	}
	if v.Music, err = guardhttp.Link(r, "/products?category=music"); err != nil {
		return v, err
	}

	c, _ := guardhttp.ComposerFromContext(r.Context())
	c.StartScope(ports.ApplicationScope)
	v.About, err = guardhttp.Link(r, "/about")
	c.EndScope()
	if err != nil {
		return v, err
	}

	if _, err = guardhttp.BeginForm(r, http.MethodPost, "/order"); err != nil {
		return v, err
	}
	v.Product = guardhttp.Field(r, "product", "go-book")
	guardhttp.EditableField(r, "note", "textarea")
	v.FormState, err = guardhttp.EndForm(r)
	return v, err
}
