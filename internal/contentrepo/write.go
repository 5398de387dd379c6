package contentrepo

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/clawfable/clawfable/internal/apperr"
	"github.com/clawfable/clawfable/internal/markdown"
	"github.com/clawfable/clawfable/internal/models"
)

// ArtifactInput is the caller-supplied payload for create and revise.
type ArtifactInput struct {
	Section          string
	Slug             string
	Title            string
	Description      string
	Content          string
	SourcePath       string
	Scope            models.ScopeMap
	Revision         *models.Revision
	AuthorCommentary string
	CreatedBy        string
	UpdatedBy        string
}

// Validate enforces the required fields before any store mutation.
func (in ArtifactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Section, validation.Required),
		validation.Field(&in.Slug, validation.Required),
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Content, validation.Required),
	)
}

// ForkInput extends ArtifactInput with the fork source reference.
type ForkInput struct {
	ArtifactInput
	SourceSection string
	SourceSlug    string
}

// Create persists a new artifact. The slug must be unoccupied.
func (r *Repo) Create(ctx context.Context, in ArtifactInput) (*models.Artifact, error) {
	section, slug, err := r.prepareWrite(ctx, in)
	if err != nil {
		return nil, err
	}

	var existing models.Artifact
	found, err := r.store.Get(ctx, artifactKey(section, slug), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperr.ErrDuplicateArtifact
	}

	art := r.buildArtifact(section, slug, in)
	art.Revision = createDefaults(in.Revision, section)
	return r.upsertArtifact(ctx, art, nil)
}

// Revise overwrites an existing artifact in place, threading lineage:
// the new record's parent_revision is the prior record's id, and family
// and status are inherited unless explicitly overridden.
func (r *Repo) Revise(ctx context.Context, in ArtifactInput) (*models.Artifact, error) {
	section, slug, err := r.prepareWrite(ctx, in)
	if err != nil {
		return nil, err
	}

	var prior models.Artifact
	found, err := r.store.Get(ctx, artifactKey(section, slug), &prior)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.ErrMissingTarget
	}

	art := r.buildArtifact(section, slug, in)
	art.Revision = reviseDefaults(in.Revision, prior.Revision, section)
	return r.upsertArtifact(ctx, art, &prior)
}

// Fork creates a new artifact derived from a source in the same section.
// The source is never mutated.
func (r *Repo) Fork(ctx context.Context, in ForkInput) (*models.Artifact, error) {
	section, slug, err := r.prepareWrite(ctx, in.ArtifactInput)
	if err != nil {
		return nil, err
	}

	sourceSection := in.SourceSection
	if sourceSection == "" {
		sourceSection = section
	}
	sourceSection, err = r.checkSection(sourceSection)
	if err != nil {
		return nil, err
	}
	if sourceSection != section {
		return nil, apperr.ErrSectionMismatch
	}

	sourceSlug, err := NormalizeSlug(in.SourceSlug)
	if err != nil {
		return nil, fmt.Errorf("fork source: %w", err)
	}

	var source models.Artifact
	found, err := r.store.Get(ctx, artifactKey(section, sourceSlug), &source)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.ErrMissingTarget
	}

	if slug == sourceSlug {
		return nil, apperr.ErrDuplicateArtifact
	}
	var occupied models.Artifact
	found, err = r.store.Get(ctx, artifactKey(section, slug), &occupied)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperr.ErrDuplicateArtifact
	}

	art := r.buildArtifact(section, slug, in.ArtifactInput)
	art.Revision = forkDefaults(in.Revision, source, section)
	return r.upsertArtifact(ctx, art, nil)
}

// prepareWrite validates the payload, resolves section and slug, and
// ensures the section is seeded so preconditions see the full store state.
// Writes require the store: there is no disk fallback here.
func (r *Repo) prepareWrite(ctx context.Context, in ArtifactInput) (section, slug string, err error) {
	if err := in.Validate(); err != nil {
		return "", "", err
	}
	section, err = r.checkSection(in.Section)
	if err != nil {
		return "", "", err
	}
	slug, err = NormalizeSlug(in.Slug)
	if err != nil {
		return "", "", err
	}
	if r.store == nil {
		return "", "", apperr.ErrStoreUnconfigured
	}
	if err := r.EnsureSectionSeeded(ctx, section); err != nil {
		return "", "", err
	}
	return section, slug, nil
}

// buildArtifact assembles the unpersisted record from the payload. The
// description falls back to one derived from the content body.
func (r *Repo) buildArtifact(section, slug string, in ArtifactInput) models.Artifact {
	description := in.Description
	if description == "" {
		description = markdown.Parse([]byte(in.Content), slug).Description
	}
	return models.Artifact{
		Section:          section,
		Slug:             slug,
		Title:            in.Title,
		Description:      description,
		Content:          in.Content,
		SourcePath:       in.SourcePath,
		Scope:            in.Scope,
		AuthorCommentary: in.AuthorCommentary,
		CreatedBy:        in.CreatedBy,
		UpdatedBy:        in.UpdatedBy,
	}
}

// upsertArtifact is the single write primitive all modes funnel through:
// it resolves attribution and timestamps, sanitizes the scope map, writes
// the record, and appends the slug to the section index when new. The
// index read-modify-write is not atomic; membership is deduplicated so a
// replayed write cannot produce duplicates.
func (r *Repo) upsertArtifact(ctx context.Context, art models.Artifact, prior *models.Artifact) (*models.Artifact, error) {
	if r.store == nil {
		return nil, apperr.ErrStoreUnconfigured
	}

	now := r.now()
	art.Scope = art.Scope.Sanitize()

	if art.UpdatedBy == "" {
		art.UpdatedBy = art.CreatedBy
	}
	if art.CreatedBy == "" {
		art.CreatedBy = art.UpdatedBy
	}
	art.CreatedAt = now
	art.UpdatedAt = now
	if prior != nil {
		if prior.CreatedBy != "" {
			art.CreatedBy = prior.CreatedBy
		}
		if !prior.CreatedAt.IsZero() {
			art.CreatedAt = prior.CreatedAt
		}
	}
	if art.SourcePath == "" {
		if prior != nil && prior.SourcePath != "" {
			art.SourcePath = prior.SourcePath
		} else {
			art.SourcePath = art.Slug + ".md"
		}
	}

	if err := r.store.Set(ctx, artifactKey(art.Section, art.Slug), art); err != nil {
		return nil, err
	}

	var slugs []string
	if _, err := r.store.Get(ctx, indexKey(art.Section), &slugs); err != nil {
		return nil, err
	}
	for _, s := range slugs {
		if s == art.Slug {
			return &art, nil
		}
	}
	slugs = append(slugs, art.Slug)
	if err := r.store.Set(ctx, indexKey(art.Section), slugs); err != nil {
		return nil, err
	}
	return &art, nil
}

// createDefaults fills the lineage block for a brand-new artifact.
func createDefaults(rev *models.Revision, section string) models.Revision {
	out := models.Revision{}
	if rev != nil {
		out = *rev
	}
	if out.Kind == "" {
		out.Kind = models.KindCore
	}
	if out.Family == "" {
		out.Family = section
	}
	if out.ID == "" {
		out.ID = "v1"
	}
	if out.Status == "" {
		out.Status = "review"
	}
	return out
}

// reviseDefaults threads the new record onto the prior one: family and
// status inherit from the target, parent_revision points at its id.
func reviseDefaults(rev *models.Revision, prior models.Revision, section string) models.Revision {
	out := models.Revision{}
	if rev != nil {
		out = *rev
	}
	if out.Kind == "" {
		out.Kind = models.KindRevision
	}
	if out.Family == "" {
		out.Family = prior.Family
	}
	if out.Family == "" {
		out.Family = section
	}
	if out.ParentRevision == "" {
		out.ParentRevision = prior.ID
	}
	if out.Status == "" {
		out.Status = prior.Status
	}
	if out.Status == "" {
		out.Status = "review"
	}
	if out.ID == "" {
		out.ID = "v1"
	}
	return out
}

// forkDefaults derives the lineage block for a fork. Kind is always fork;
// the source reference records where the family branched.
func forkDefaults(rev *models.Revision, source models.Artifact, section string) models.Revision {
	out := models.Revision{}
	if rev != nil {
		out = *rev
	}
	out.Kind = models.KindFork
	if out.Family == "" {
		out.Family = source.Revision.Family
	}
	if out.Family == "" {
		out.Family = section
	}
	if out.ParentRevision == "" {
		out.ParentRevision = source.Revision.ID
	}
	if out.Source == "" {
		out.Source = source.SourcePath
	}
	if out.Source == "" {
		out.Source = source.Slug
	}
	if out.Status == "" {
		out.Status = "review"
	}
	if out.ID == "" {
		out.ID = "v1"
	}
	return out
}
