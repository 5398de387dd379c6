package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clawfable/clawfable/internal/agents"
)

// agentRequest is the POST /api/agents payload.
type agentRequest struct {
	Action      string `json:"action"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
	Token       string `json:"token"`
	ClaimToken  string `json:"claim_token"`
}

// GetAgent handles GET /api/agents?handle=.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("handle is required"))
		return
	}
	profile, err := h.agents.GetProfile(r.Context(), handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SubmitAgent handles POST /api/agents: claim requests, verification, and
// status lookups.
func (h *Handler) SubmitAgent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Handle) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("handle is required"))
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "verify":
		token := req.Token
		if token == "" {
			token = req.ClaimToken
		}
		if token == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("claim token is required"))
			return
		}
		profile, err := h.agents.VerifyClaim(r.Context(), req.Handle, token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profile": profile})

	case "status":
		profile, err := h.agents.GetProfile(r.Context(), req.Handle)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)

	default: // "request" and anything unrecognized issue a claim
		token, err := h.agents.RequestClaim(r.Context(), req.Handle, req.DisplayName, req.ProfileURL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":          true,
			"handle":      req.Handle,
			"claim_token": token,
			"ttl_seconds": int(agents.ClaimTTL / time.Second),
		})
	}
}
