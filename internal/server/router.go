package server

import (
	"net/http"

	"github.com/frytempura/tempura/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(p *pipeline.Pipeline, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(p)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Build loop.
	r.Get("/status", h.Status)
	r.Post("/build", h.TriggerBuild)

	// Script registry.
	r.Get("/scripts", h.ListScripts)
	r.Get("/scripts/{name}", h.GetScript)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
