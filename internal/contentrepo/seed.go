package contentrepo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clawfable/clawfable/internal/apperr"
)

// EnsureSectionSeeded imports the section's disk content into the store,
// at most once per process lifetime. The store is authoritative: a
// non-empty index means disk is never re-imported. The per-section skip
// flag lets an operator serve an empty or store-only section.
//
// Concurrent first requests within this process share one walk through
// singleflight; across processes the walk can run more than once, which is
// safe because every seed write is keyed by its stable slug.
func (r *Repo) EnsureSectionSeeded(ctx context.Context, section string) error {
	section, err := r.checkSection(section)
	if err != nil {
		return err
	}

	r.mu.Lock()
	done := r.seeded[section]
	r.mu.Unlock()
	if done {
		return nil
	}

	_, err, _ = r.seeding.Do(section, func() (any, error) {
		return nil, r.seedSection(ctx, section)
	})
	return err
}

func (r *Repo) seedSection(ctx context.Context, section string) error {
	if r.store == nil {
		return apperr.ErrStoreUnconfigured
	}

	// Store already holds content for this section: done.
	var slugs []string
	if _, err := r.store.Get(ctx, indexKey(section), &slugs); err != nil {
		return err
	}
	if len(slugs) > 0 {
		r.markSeeded(section, false)
		return nil
	}

	// Operator flag: leave the section exactly as the store has it.
	var skip bool
	if _, err := r.store.Get(ctx, skipSeedKey(section), &skip); err != nil {
		return err
	}
	if skip {
		r.markSeeded(section, true)
		return nil
	}

	files, err := r.disk.ListMarkdown(section)
	if err != nil {
		return fmt.Errorf("seed %s: %w", section, err)
	}

	for _, f := range files {
		data, err := r.disk.Read(section + "/" + f.SourcePath)
		if err != nil {
			slog.Warn("seed file unreadable, skipping", slog.String("section", section), slog.String("path", f.SourcePath), slog.String("error", err.Error()))
			continue
		}
		art := r.artifactFromFile(section, f, data)
		// Same write path as live contributions, keyed by stable slug.
		if _, err := r.upsertArtifact(ctx, art, nil); err != nil {
			return fmt.Errorf("seed %s/%s: %w", section, f.Slug, err)
		}
	}

	slog.Info("section seeded from disk", slog.String("section", section), slog.Int("files", len(files)))
	r.markSeeded(section, false)
	return nil
}

func (r *Repo) markSeeded(section string, skipped bool) {
	r.mu.Lock()
	r.seeded[section] = true
	r.skipped[section] = skipped
	r.mu.Unlock()
}

// SetSkipSeeding persists the per-section skip flag and resets the
// process-local marker so the next read re-evaluates it.
func (r *Repo) SetSkipSeeding(ctx context.Context, section string, skip bool) error {
	section, err := r.checkSection(section)
	if err != nil {
		return err
	}
	if r.store == nil {
		return apperr.ErrStoreUnconfigured
	}
	if err := r.store.Set(ctx, skipSeedKey(section), skip); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.seeded, section)
	delete(r.skipped, section)
	r.mu.Unlock()
	return nil
}

// ClearSection deletes the section's index and every artifact key, then
// resets the process-local seed marker so the next read starts clean.
// Artifact keys are collected from both the index and a store scan, since
// stale entries can disagree.
func (r *Repo) ClearSection(ctx context.Context, section string) (deleted int, err error) {
	section, err = r.checkSection(section)
	if err != nil {
		return 0, err
	}
	if r.store == nil {
		return 0, apperr.ErrStoreUnconfigured
	}

	var slugs []string
	if _, err := r.store.Get(ctx, indexKey(section), &slugs); err != nil {
		return 0, err
	}
	scanned, err := r.store.Keys(ctx, artifactKeyPrefix(section)+"*")
	if err != nil {
		return 0, err
	}

	keys := make(map[string]struct{}, len(slugs)+len(scanned))
	for _, slug := range slugs {
		keys[artifactKey(section, slug)] = struct{}{}
	}
	for _, key := range scanned {
		keys[key] = struct{}{}
	}

	all := make([]string, 0, len(keys)+1)
	for key := range keys {
		all = append(all, key)
	}
	all = append(all, indexKey(section))
	if err := r.store.Delete(ctx, all...); err != nil {
		return 0, err
	}

	r.mu.Lock()
	delete(r.seeded, section)
	delete(r.skipped, section)
	r.mu.Unlock()
	return len(keys), nil
}
