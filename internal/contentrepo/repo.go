// Package contentrepo implements the artifact repository: it reconciles
// disk-based seed content with the key-value store, threads revision
// lineage across create/revise/fork, and keeps per-section slug indexes.
//
// The store wins every read once a record exists; disk is only a fallback
// for never-seeded content. There are no transactions: precondition checks
// and writes are separate round-trips and concurrent writers are
// last-writer-wins on a key. Index membership is deduplicated on write, so
// re-running any write is safe.
package contentrepo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clawfable/clawfable/internal/apperr"
	"github.com/clawfable/clawfable/internal/kv"
	"github.com/clawfable/clawfable/internal/markdown"
	"github.com/clawfable/clawfable/internal/models"
	"github.com/clawfable/clawfable/internal/storage"
)

// CoreSections is the fixed recognized section vocabulary.
var CoreSections = []string{"soul", "memory"}

// IsCoreSection reports whether name is a recognized section.
func IsCoreSection(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range CoreSections {
		if name == s {
			return true
		}
	}
	return false
}

// Persisted key layout. Stable across deployments: changing these orphans
// existing records.
func indexKey(section string) string          { return "index:" + section }
func artifactKey(section, slug string) string { return "artifact:" + section + ":" + slug }
func artifactKeyPrefix(section string) string { return "artifact:" + section + ":" }
func skipSeedKey(section string) string       { return "seed:skip:" + section }

// Repo is the artifact repository. store may be nil when no KV credentials
// resolved; reads then degrade to disk and writes fail.
type Repo struct {
	store kv.Client
	disk  storage.Source
	now   func() time.Time

	mu      sync.Mutex
	seeded  map[string]bool
	skipped map[string]bool
	seeding singleflight.Group
}

// NewRepo creates a repository over the given store and disk source.
func NewRepo(store kv.Client, disk storage.Source) *Repo {
	return &Repo{
		store:   store,
		disk:    disk,
		now:     time.Now,
		seeded:  make(map[string]bool),
		skipped: make(map[string]bool),
	}
}

// ListSections returns the recognized sections present on disk.
func (r *Repo) ListSections() []string {
	var out []string
	for _, s := range CoreSections {
		if r.disk.DirExists(s) {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSlug canonicalizes a /-delimited slug: slashes trimmed, .md
// suffix stripped, empty and traversal segments rejected.
func NormalizeSlug(raw string) (string, error) {
	s := strings.TrimSuffix(strings.Trim(strings.TrimSpace(raw), "/"), ".md")
	if s == "" {
		return "", apperr.ErrInvalidSlug
	}
	var segments []string
	for _, seg := range strings.Split(s, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." {
			return "", apperr.ErrInvalidSlug
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "", apperr.ErrInvalidSlug
	}
	return strings.Join(segments, "/"), nil
}

// GetDoc returns the artifact at (section, slug). The store wins
// unconditionally; a store miss falls back to parsing the disk file unless
// seeding was explicitly skipped for the section.
func (r *Repo) GetDoc(ctx context.Context, section, slug string) (*models.Artifact, error) {
	section, err := r.checkSection(section)
	if err != nil {
		return nil, err
	}
	slug, err = NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	if err := r.EnsureSectionSeeded(ctx, section); err != nil {
		// Store unavailable or unreachable: reads degrade to disk.
		slog.Debug("seed check failed, reading from disk", slog.String("section", section), slog.String("error", err.Error()))
		return r.diskDoc(section, slug)
	}

	var art models.Artifact
	found, err := r.store.Get(ctx, artifactKey(section, slug), &art)
	if err != nil {
		slog.Warn("store read failed, reading from disk", slog.String("section", section), slog.String("slug", slug), slog.String("error", err.Error()))
		return r.diskDoc(section, slug)
	}
	if found {
		return &art, nil
	}
	if r.seedingSkipped(section) {
		// Operator chose a store-only section; disk content stays invisible.
		return nil, apperr.ErrNotFound
	}
	return r.diskDoc(section, slug)
}

// ListBySection returns every artifact referenced by the section index,
// sorted by title. Dangling index entries (deleted out of band) are
// filtered out, not surfaced. An empty index falls back to a full disk
// listing unless seeding was skipped.
func (r *Repo) ListBySection(ctx context.Context, section string) ([]models.Artifact, error) {
	section, err := r.checkSection(section)
	if err != nil {
		return nil, err
	}

	if err := r.EnsureSectionSeeded(ctx, section); err != nil {
		slog.Debug("seed check failed, listing from disk", slog.String("section", section), slog.String("error", err.Error()))
		return r.diskList(section)
	}

	var slugs []string
	if _, err := r.store.Get(ctx, indexKey(section), &slugs); err != nil {
		slog.Warn("index read failed, listing from disk", slog.String("section", section), slog.String("error", err.Error()))
		return r.diskList(section)
	}

	if len(slugs) == 0 {
		if r.seedingSkipped(section) {
			return nil, nil
		}
		return r.diskList(section)
	}

	var out []models.Artifact
	for _, slug := range slugs {
		var art models.Artifact
		found, err := r.store.Get(ctx, artifactKey(section, slug), &art)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, art)
		}
	}
	models.SortByTitle(out)
	return out, nil
}

// GetRootDoc returns a top-level, non-sectioned document straight from
// disk. The store is never involved.
func (r *Repo) GetRootDoc(slug string) (*models.Doc, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	data, err := r.disk.Read(slug + ".md")
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	doc := markdown.Parse(data, slug)
	return &models.Doc{Metadata: doc.FrontMatter, Content: doc.Body}, nil
}

func (r *Repo) checkSection(section string) (string, error) {
	section = strings.ToLower(strings.TrimSpace(section))
	if !IsCoreSection(section) {
		return "", apperr.ErrUnsupportedSection
	}
	return section, nil
}

func (r *Repo) seedingSkipped(section string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped[section]
}

// diskDoc parses the section file for slug into a synthesized, never
// persisted artifact.
func (r *Repo) diskDoc(section, slug string) (*models.Artifact, error) {
	data, err := r.disk.Read(section + "/" + slug + ".md")
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	art := r.artifactFromFile(section, storage.File{Slug: slug, SourcePath: slug + ".md"}, data)
	return &art, nil
}

// diskList parses every markdown file in the section into synthesized
// artifacts, sorted by title.
func (r *Repo) diskList(section string) ([]models.Artifact, error) {
	files, err := r.disk.ListMarkdown(section)
	if err != nil {
		return nil, err
	}
	var out []models.Artifact
	for _, f := range files {
		data, err := r.disk.Read(section + "/" + f.SourcePath)
		if err != nil {
			continue
		}
		out = append(out, r.artifactFromFile(section, f, data))
	}
	models.SortByTitle(out)
	return out, nil
}

// artifactFromFile builds an artifact from a raw disk file, applying the
// same lineage defaults the create path uses so seeded and synthesized
// records look alike.
func (r *Repo) artifactFromFile(section string, f storage.File, data []byte) models.Artifact {
	doc := markdown.Parse(data, f.SourcePath)
	now := r.now()
	return models.Artifact{
		Section:     section,
		Slug:        f.Slug,
		Title:       doc.Title,
		Description: doc.Description,
		Content:     doc.Body,
		SourcePath:  f.SourcePath,
		Scope:       doc.Scope,
		Revision:    createDefaults(doc.Revision, section),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
