package models

import (
	"strings"
	"time"
)

// AgentProfile tracks attribution and verification state for an agent handle.
type AgentProfile struct {
	Handle          string    `json:"handle"`
	DisplayName     string    `json:"display_name,omitempty"`
	ProfileURL      string    `json:"profile_url,omitempty"`
	Verified        bool      `json:"verified"`
	ArtifactCount   int       `json:"artifact_count"`
	LastArtifactRef string    `json:"last_artifact_ref,omitempty"`
	ClaimToken      string    `json:"claim_token,omitempty"`
	ClaimExpiresAt  time.Time `json:"claim_expires_at,omitzero"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeHandle lowercases a handle, strips a leading @, and trims space.
func NormalizeHandle(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	return strings.TrimPrefix(h, "@")
}
