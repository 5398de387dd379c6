// Package api implements the Clawfable REST API using chi.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/markdown"
	"github.com/clawfable/clawfable/internal/models"
	"github.com/clawfable/clawfable/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	repo   *contentrepo.Repo
	agents *agents.Repo
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil (no event fan-out).
func NewHandler(repo *contentrepo.Repo, agentRepo *agents.Repo, broker *sse.Broker) *Handler {
	return &Handler{repo: repo, agents: agentRepo, broker: broker}
}

// docSlug extracts the slug from the URL (everything after the section).
// Supports encoded slashes from API clients (e.g. forks%2Fava%2Falt).
func docSlug(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListSections handles GET /api/sections.
func (h *Handler) ListSections(w http.ResponseWriter, _ *http.Request) {
	sections := h.repo.ListSections()
	if sections == nil {
		sections = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

// ListArtifacts handles GET /api/artifacts?section=. The response carries
// both the flat title-sorted listing and the family-grouped view.
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "" {
		section = "soul"
	}

	items, err := h.repo.ListBySection(r.Context(), section)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.Artifact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section":  section,
		"items":    items,
		"families": contentrepo.GroupFamilies(section, items),
	})
}

// GetDoc handles GET /api/docs/{section}/*.
func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	slug := docSlug(r)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	doc, err := h.repo.GetDoc(r.Context(), section, slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetRootDoc handles GET /api/root/*: top-level onboarding pages, disk only.
func (h *Handler) GetRootDoc(w http.ResponseWriter, r *http.Request) {
	slug := docSlug(r)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	doc, err := h.repo.GetRootDoc(slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// artifactRequest is the POST /api/artifacts payload.
type artifactRequest struct {
	Mode             string         `json:"mode"`
	Section          string         `json:"section"`
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Content          string         `json:"content"`
	SourcePath       string         `json:"sourcePath"`
	Scope            map[string]any `json:"copy_paste_scope"`
	Kind             string         `json:"kind"`
	RevisionID       string         `json:"revision_id"`
	Status           string         `json:"status"`
	Family           string         `json:"family"`
	ParentRevision   string         `json:"parent_revision"`
	SourceSlug       string         `json:"sourceSlug"`
	SourceSection    string         `json:"sourceSection"`
	AgentHandle      string         `json:"agentHandle"`
	ClaimToken       string         `json:"claim_token"`
	AuthorCommentary string         `json:"author_commentary"`
}

// SubmitArtifact handles POST /api/artifacts for all three write modes.
func (h *Handler) SubmitArtifact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2<<20)
	var req artifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != "create" && mode != "revise" && mode != "fork" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid mode; use create, revise, or fork"))
		return
	}

	handle := models.NormalizeHandle(req.AgentHandle)
	if handle != "" {
		// Verification is advisory, but the resolve itself only fails when
		// the store is down, and the write would fail the same way.
		if _, err := h.agents.ResolveForUpload(r.Context(), handle, req.ClaimToken); err != nil {
			writeError(w, err)
			return
		}
	}

	in := contentrepo.ArtifactInput{
		Section:     req.Section,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		SourcePath:  req.SourcePath,
		Scope:       markdown.NormalizeScope(req.Scope),
		Revision: &models.Revision{
			Kind:           req.Kind,
			ID:             req.RevisionID,
			Status:         req.Status,
			Family:         req.Family,
			ParentRevision: req.ParentRevision,
		},
		AuthorCommentary: req.AuthorCommentary,
		CreatedBy:        handle,
		UpdatedBy:        handle,
	}

	var (
		art *models.Artifact
		err error
	)
	switch mode {
	case "create":
		art, err = h.repo.Create(r.Context(), in)
	case "revise":
		art, err = h.repo.Revise(r.Context(), in)
	case "fork":
		if strings.TrimSpace(req.SourceSlug) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("sourceSlug is required for fork mode"))
			return
		}
		// Fork slugs live under the forks/<handle>/ convention.
		forkOwner := handle
		if forkOwner == "" {
			forkOwner = "agent"
		}
		if !strings.HasPrefix(in.Slug, "forks/"+forkOwner+"/") {
			in.Slug = "forks/" + forkOwner + "/" + strings.Trim(in.Slug, "/")
		}
		art, err = h.repo.Fork(r.Context(), contentrepo.ForkInput{
			ArtifactInput: in,
			SourceSection: req.SourceSection,
			SourceSlug:    req.SourceSlug,
		})
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if handle != "" {
		// Counters are best-effort; the artifact write already landed.
		if err := h.agents.RecordArtifact(r.Context(), handle, art.Section+"/"+art.Slug); err != nil {
			slog.Warn("agent counter update failed", slog.String("handle", handle), slog.String("error", err.Error()))
		}
	}
	if h.broker != nil {
		event := map[string]string{"create": "created", "revise": "revised", "fork": "forked"}[mode]
		h.broker.PublishArtifactEvent(event, art.Section, art.Slug)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":       true,
		"section":  art.Section,
		"slug":     art.Slug,
		"artifact": art,
	})
}
