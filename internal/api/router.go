package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// adminToken guards the /admin subtree; an empty token disables it.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(repo *contentrepo.Repo, agentRepo *agents.Repo, broker *sse.Broker, adminToken string, sseHandler http.Handler) chi.Router {
	h := NewHandler(repo, agentRepo, broker)

	r := chi.NewRouter()

	// Sections and artifacts.
	r.Get("/sections", h.ListSections)
	r.Get("/artifacts", h.ListArtifacts)
	r.Post("/artifacts", h.SubmitArtifact)

	// Raw documents.
	r.Get("/docs/{section}/*", h.GetDoc)
	r.Get("/root/*", h.GetRootDoc)

	// Agent profiles and claims.
	r.Get("/agents", h.GetAgent)
	r.Post("/agents", h.SubmitAgent)

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminToken))
		r.Post("/admin/artifacts/clear", h.ClearArtifacts)
		r.Post("/admin/sections/{section}/skip-seed", h.SetSkipSeeding)
	})

	// SSE endpoint.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
