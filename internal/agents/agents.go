// Package agents implements the handle-keyed agent profile repository and
// the claim-token verification handshake. Verification is advisory: an
// unverified agent can still author artifacts, the flag only feeds the
// trust signal shown next to attributions.
package agents

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/clawfable/clawfable/internal/apperr"
	"github.com/clawfable/clawfable/internal/kv"
	"github.com/clawfable/clawfable/internal/models"
)

// ClaimTTL is how long an issued claim token stays valid.
const ClaimTTL = 24 * time.Hour

const handlesKey = "profiles:index"

func profileKey(handle string) string { return "profile:" + handle }

// Repo owns the profile key namespace. No other component writes it.
type Repo struct {
	store kv.Client
	now   func() time.Time
}

// NewRepo creates an agent profile repository over the given store.
func NewRepo(store kv.Client) *Repo {
	return &Repo{store: store, now: time.Now}
}

// GetProfile returns the profile for handle, or ErrNotFound.
func (r *Repo) GetProfile(ctx context.Context, handle string) (*models.AgentProfile, error) {
	if r.store == nil {
		return nil, apperr.ErrStoreUnconfigured
	}
	handle = models.NormalizeHandle(handle)
	var profile models.AgentProfile
	found, err := r.store.Get(ctx, profileKey(handle), &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.ErrNotFound
	}
	return &profile, nil
}

// RequestClaim issues a fresh single-use claim token on the (possibly newly
// created) profile for handle and returns it. A new request replaces any
// outstanding token.
func (r *Repo) RequestClaim(ctx context.Context, handle, displayName, profileURL string) (string, error) {
	if r.store == nil {
		return "", apperr.ErrStoreUnconfigured
	}
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return "", apperr.ErrNotFound
	}

	profile, err := r.loadOrCreate(ctx, handle)
	if err != nil {
		return "", err
	}
	if displayName != "" {
		profile.DisplayName = displayName
	}
	if profileURL != "" {
		profile.ProfileURL = profileURL
	}

	token := newToken()
	profile.ClaimToken = token
	profile.ClaimExpiresAt = r.now().Add(ClaimTTL)
	if err := r.save(ctx, profile); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyClaim redeems a claim token. On success the profile is permanently
// verified and the token fields are cleared; a second attempt with the same
// token fails with ErrInvalidToken.
func (r *Repo) VerifyClaim(ctx context.Context, handle, token string) (*models.AgentProfile, error) {
	profile, err := r.GetProfile(ctx, handle)
	if err != nil {
		return nil, err
	}
	if profile.ClaimToken == "" || profile.ClaimToken != token {
		return nil, apperr.ErrInvalidToken
	}
	if r.now().After(profile.ClaimExpiresAt) {
		return nil, apperr.ErrExpiredToken
	}

	profile.Verified = true
	profile.ClaimToken = ""
	profile.ClaimExpiresAt = time.Time{}
	if err := r.save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ResolveForUpload stamps attribution for a write. A valid unexpired claim
// token verifies the profile in passing; anything else proceeds unverified
// rather than blocking the write.
func (r *Repo) ResolveForUpload(ctx context.Context, handle, claimToken string) (*models.AgentProfile, error) {
	if r.store == nil {
		return nil, apperr.ErrStoreUnconfigured
	}
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return nil, apperr.ErrNotFound
	}

	profile, err := r.loadOrCreate(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !profile.Verified && claimToken != "" &&
		profile.ClaimToken == claimToken && r.now().Before(profile.ClaimExpiresAt) {
		profile.Verified = true
		profile.ClaimToken = ""
		profile.ClaimExpiresAt = time.Time{}
	}
	if err := r.save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// RecordArtifact bumps the artifact counters on handle's profile after a
// successful write. ref is "section/slug".
func (r *Repo) RecordArtifact(ctx context.Context, handle, ref string) error {
	if r.store == nil {
		return apperr.ErrStoreUnconfigured
	}
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return nil
	}

	profile, err := r.loadOrCreate(ctx, handle)
	if err != nil {
		return err
	}
	profile.ArtifactCount++
	profile.LastArtifactRef = ref
	return r.save(ctx, profile)
}

// ListHandles returns every known agent handle.
func (r *Repo) ListHandles(ctx context.Context) ([]string, error) {
	if r.store == nil {
		return nil, apperr.ErrStoreUnconfigured
	}
	var handles []string
	if _, err := r.store.Get(ctx, handlesKey, &handles); err != nil {
		return nil, err
	}
	return handles, nil
}

func (r *Repo) loadOrCreate(ctx context.Context, handle string) (*models.AgentProfile, error) {
	var profile models.AgentProfile
	found, err := r.store.Get(ctx, profileKey(handle), &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		profile = models.AgentProfile{Handle: handle, CreatedAt: r.now()}
	}
	return &profile, nil
}

// save writes the profile and registers its handle in the handles index.
func (r *Repo) save(ctx context.Context, profile *models.AgentProfile) error {
	profile.UpdatedAt = r.now()
	if err := r.store.Set(ctx, profileKey(profile.Handle), profile); err != nil {
		return err
	}

	var handles []string
	if _, err := r.store.Get(ctx, handlesKey, &handles); err != nil {
		return err
	}
	for _, h := range handles {
		if h == profile.Handle {
			return nil
		}
	}
	handles = append(handles, profile.Handle)
	return r.store.Set(ctx, handlesKey, handles)
}

func newToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
