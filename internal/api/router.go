package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultlens/internal/viewservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *viewservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Selection.
	r.Get("/selection", h.GetSelection)
	r.Get("/selection/all", h.GetAllFiles)
	r.Patch("/selection/options", h.UpdateOptions)
	r.Post("/selection/refresh", h.Refresh)
	r.Get("/selection/daily", h.CheckDailyNote)
	r.Post("/selection/daily", h.CreateDailyNote)

	// Notes CRUD.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
