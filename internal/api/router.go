package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(page Page, notify Notifier, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(page, notify)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/view", h.View)
	r.Post("/search", h.Search)
	r.Post("/page", h.SelectPage)
	r.Post("/refresh", h.Refresh)

	r.Route("/modal", func(r chi.Router) {
		r.Post("/open", h.OpenModal)
		r.Post("/close", h.CloseModal)
		r.Put("/draft", h.EditDraft)
	})

	r.Post("/notes", h.CreateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
