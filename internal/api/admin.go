package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clawfable/clawfable/internal/contentrepo"
)

// adminClearRequest is the POST /api/admin/artifacts/clear payload.
type adminClearRequest struct {
	Sections []string `json:"sections"`
}

type clearResult struct {
	Section          string `json:"section"`
	ArtifactsDeleted int    `json:"artifactsDeleted"`
}

// ClearArtifacts handles POST /api/admin/artifacts/clear. The admin token
// middleware has already gated access. With no sections named, every core
// section is cleared.
func (h *Handler) ClearArtifacts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req adminClearRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body means all sections

	sections := normalizeSections(req.Sections, r.URL.Query().Get("sections"))
	if len(sections) == 0 {
		sections = contentrepo.CoreSections
	}

	results := make([]clearResult, 0, len(sections))
	for _, section := range sections {
		deleted, err := h.repo.ClearSection(r.Context(), section)
		if err != nil {
			writeError(w, err)
			return
		}
		results = append(results, clearResult{Section: section, ArtifactsDeleted: deleted})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cleared": results})
}

// SetSkipSeeding handles POST /api/admin/sections/{section}/skip-seed,
// toggling the per-section flag that keeps disk content out of the store.
func (h *Handler) SetSkipSeeding(w http.ResponseWriter, r *http.Request) {
	section := strings.TrimSpace(chi.URLParam(r, "section"))
	var req struct {
		Skip bool `json:"skip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.repo.SetSkipSeeding(r.Context(), section, req.Skip); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "section": section, "skip": req.Skip})
}

// normalizeSections merges body and query section lists, lowercased and
// deduplicated, keeping only recognized sections.
func normalizeSections(body []string, query string) []string {
	raw := append([]string{}, body...)
	if query != "" {
		raw = append(raw, strings.Split(query, ",")...)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || !contentrepo.IsCoreSection(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
