package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gittodo/internal/todoservice"
)

// NewRouter creates a chi router with every gittodo route. authEnabled
// controls whether Bearer token auth is enforced. sseHandler, if non-nil, is
// mounted at GET /api/events behind the same auth.
func NewRouter(svc *todoservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Plain-text endpoints.
	r.Get("/raw", h.Raw)
	r.Get("/cmd", h.CommandHelp)
	r.Post("/cmd", h.Command)

	r.Route("/api", func(r chi.Router) {
		r.Get("/todos", h.Todos)
		r.Get("/sections", h.Sections)
		r.Get("/sections/{name}", h.Section)
		r.Post("/add", h.Add)
		r.Post("/done", h.DoneBatch)
		r.Post("/done/{line}", h.Done)
		r.Post("/move", h.Move)
		r.Get("/search", h.Search)
		r.Get("/reminders", h.Reminders)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
