package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/models"
	"github.com/clawfable/clawfable/internal/testutil"
)

// testEnv sets up a temp content dir, an in-process KV store, and a router.
func testEnv(t *testing.T, adminToken string, files map[string]string) (*contentrepo.Repo, http.Handler) {
	t.Helper()

	store, _ := testutil.TestKV(t)
	_, src := testutil.TestContent(t, files)

	repo := contentrepo.NewRepo(store, src)
	agentRepo := agents.NewRepo(store)
	router := NewRouter(repo, agentRepo, nil, adminToken, nil)
	return repo, router
}

func seedFiles() map[string]string {
	return map[string]string{
		"soul/identity.md":   "---\ntitle: Identity\n---\n# Identity\nWho we are.",
		"memory/recall.md":   "# Recall\nHow memory works.",
		"AGENTS.md":          "# Agents\nOnboarding notes.",
		"soul/voice/tone.md": "# Tone\nSpeak plainly.",
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListSections(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/sections", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Sections []string `json:"sections"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sections) != 2 {
		t.Fatalf("sections = %v, want soul and memory", resp.Sections)
	}
}

func TestListArtifactsSeedsFromDisk(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/artifacts?section=soul", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Section  string               `json:"section"`
		Items    []models.Artifact    `json:"items"`
		Families []models.FamilyGroup `json:"families"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Section != "soul" {
		t.Errorf("section = %q", resp.Section)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if len(resp.Families) == 0 {
		t.Error("families missing from listing")
	}
}

func TestListArtifactsUnknownSection(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/artifacts?section=secrets", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetDoc(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/docs/soul/identity", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var art models.Artifact
	if err := json.Unmarshal(w.Body.Bytes(), &art); err != nil {
		t.Fatal(err)
	}
	if art.Title != "Identity" {
		t.Errorf("title = %q", art.Title)
	}
	if art.Content == "" {
		t.Error("content is empty")
	}
}

func TestGetDocEncodedSlug(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/docs/soul/voice%2Ftone", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestGetDocNotFound(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/docs/soul/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetRootDoc(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodGet, "/root/AGENTS", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc models.Doc
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if !strings.Contains(doc.Content, "# Agents") {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestSubmitArtifactCreate(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodPost, "/artifacts", map[string]any{
		"mode":    "create",
		"section": "memory",
		"slug":    "episodic",
		"title":   "Episodic Memory",
		"content": "# Episodic Memory\nEvents, in order.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK       bool            `json:"ok"`
		Slug     string          `json:"slug"`
		Artifact models.Artifact `json:"artifact"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Slug != "episodic" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Artifact.Revision.Kind != models.KindCore {
		t.Errorf("revision = %+v, want core defaults", resp.Artifact.Revision)
	}
}

func TestSubmitArtifactCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	payload := map[string]any{
		"mode": "create", "section": "memory", "slug": "dup",
		"title": "Dup", "content": "body",
	}
	if w := doJSON(t, router, http.MethodPost, "/artifacts", payload); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/artifacts", payload); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestSubmitArtifactReviseMissingTarget(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodPost, "/artifacts", map[string]any{
		"mode": "revise", "section": "memory", "slug": "absent",
		"title": "Absent", "content": "body",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSubmitArtifactFork(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodPost, "/artifacts", map[string]any{
		"mode":        "fork",
		"section":     "soul",
		"slug":        "identity-alt",
		"title":       "Identity Alt",
		"content":     "# Identity Alt\nA different take.",
		"sourceSlug":  "identity",
		"agentHandle": "@Ava",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Slug     string          `json:"slug"`
		Artifact models.Artifact `json:"artifact"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Slug != "forks/ava/identity-alt" {
		t.Errorf("slug = %q, want forks/ava/identity-alt", resp.Slug)
	}
	if resp.Artifact.Revision.Kind != models.KindFork {
		t.Errorf("revision = %+v, want fork", resp.Artifact.Revision)
	}
}

func TestSubmitArtifactInvalidMode(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	w := doJSON(t, router, http.MethodPost, "/artifacts", map[string]any{
		"mode": "upsert", "section": "soul", "slug": "x", "title": "X", "content": "y",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAgentClaimFlow(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	// Request a claim token.
	w := doJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"handle":       "@Ava",
		"display_name": "Ava",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("request status = %d, body = %s", w.Code, w.Body.String())
	}
	var claim struct {
		OK         bool   `json:"ok"`
		ClaimToken string `json:"claim_token"`
		TTLSeconds int    `json:"ttl_seconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &claim); err != nil {
		t.Fatal(err)
	}
	if len(claim.ClaimToken) != 32 {
		t.Fatalf("token length = %d, want 32", len(claim.ClaimToken))
	}
	if claim.TTLSeconds != 86400 {
		t.Errorf("ttl = %d, want 86400", claim.TTLSeconds)
	}

	// Verify with the issued token.
	w = doJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"action": "verify",
		"handle": "ava",
		"token":  claim.ClaimToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", w.Code, w.Body.String())
	}
	var verified struct {
		Profile models.AgentProfile `json:"profile"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &verified)
	if !verified.Profile.Verified {
		t.Error("profile not marked verified")
	}

	// Status lookup via GET.
	w = doJSON(t, router, http.MethodGet, "/agents?handle=ava", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestAgentVerifyWrongToken(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	if w := doJSON(t, router, http.MethodPost, "/agents", map[string]any{"handle": "bo"}); w.Code != http.StatusOK {
		t.Fatalf("request = %d", w.Code)
	}
	w := doJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"action": "verify", "handle": "bo", "token": "deadbeefdeadbeefdeadbeefdeadbeef",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminClearRequiresToken(t *testing.T) {
	_, router := testEnv(t, "secret", seedFiles())

	w := doJSON(t, router, http.MethodPost, "/admin/artifacts/clear", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/artifacts/clear", bytes.NewReader(nil))
	req.Header.Set("X-Admin-Token", "wrong")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w2.Code)
	}
}

func TestAdminClearDisabledWithoutConfiguredToken(t *testing.T) {
	_, router := testEnv(t, "", seedFiles())

	req := httptest.NewRequest(http.MethodPost, "/admin/artifacts/clear", bytes.NewReader(nil))
	req.Header.Set("X-Admin-Token", "anything")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAdminClearArtifacts(t *testing.T) {
	_, router := testEnv(t, "secret", seedFiles())

	// Force a seed by listing first.
	if w := doJSON(t, router, http.MethodGet, "/artifacts?section=soul", nil); w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}

	body, _ := json.Marshal(map[string]any{"sections": []string{"soul"}})
	req := httptest.NewRequest(http.MethodPost, "/admin/artifacts/clear", bytes.NewReader(body))
	req.Header.Set("X-Admin-Token", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Cleared []clearResult `json:"cleared"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Cleared) != 1 || resp.Cleared[0].ArtifactsDeleted != 2 {
		t.Errorf("cleared = %+v, want 2 soul artifacts deleted", resp.Cleared)
	}
}

func TestAdminSkipSeeding(t *testing.T) {
	_, router := testEnv(t, "secret", seedFiles())

	body, _ := json.Marshal(map[string]any{"skip": true})
	req := httptest.NewRequest(http.MethodPost, "/admin/sections/memory/skip-seed", bytes.NewReader(body))
	req.Header.Set("X-Admin-Token", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Disk content stays out of the store and out of reads.
	list := doJSON(t, router, http.MethodGet, "/artifacts?section=memory", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list = %d", list.Code)
	}
	var resp struct {
		Items []models.Artifact `json:"items"`
	}
	_ = json.Unmarshal(list.Body.Bytes(), &resp)
	if len(resp.Items) != 0 {
		t.Errorf("items = %d, want 0 after skip-seed", len(resp.Items))
	}
}
