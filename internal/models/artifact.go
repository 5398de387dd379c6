// Package models defines the domain types for Clawfable.
package models

import (
	"sort"
	"time"
)

// Scope keys recognized in copy_paste_scope, in display order.
var ScopeKeys = []string{"soul", "memory", "skill", "user_files"}

// ScopeMap tags an artifact with the downstream systems it may be copied into.
// A sanitized map carries exactly the four recognized keys.
type ScopeMap map[string]bool

// Sanitize returns a copy holding exactly the recognized keys, with missing
// flags defaulting to false.
func (m ScopeMap) Sanitize() ScopeMap {
	out := make(ScopeMap, len(ScopeKeys))
	for _, key := range ScopeKeys {
		out[key] = m[key]
	}
	return out
}

// Tags returns the enabled scope keys in canonical order.
func (m ScopeMap) Tags() []string {
	var tags []string
	for _, key := range ScopeKeys {
		if m[key] {
			tags = append(tags, key)
		}
	}
	return tags
}

// Revision kinds with recognized grouping semantics. The vocabulary is open:
// any other string is accepted and sorts after these three.
const (
	KindCore     = "core"
	KindRevision = "revision"
	KindFork     = "fork"
)

// Recognized revision statuses. Unrecognized values pass through unchanged.
var RevisionStatuses = []string{"draft", "review", "accepted", "archived"}

// Revision places an artifact in its lineage.
type Revision struct {
	Family         string `json:"family"`
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	ParentRevision string `json:"parent_revision,omitempty"`
	Source         string `json:"source,omitempty"`
}

// Artifact is a single markdown document within a section, identified by
// (section, slug).
type Artifact struct {
	Section          string    `json:"section"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Content          string    `json:"content"`
	SourcePath       string    `json:"sourcePath,omitempty"`
	Scope            ScopeMap  `json:"copy_paste_scope"`
	Revision         Revision  `json:"revision"`
	AuthorCommentary string    `json:"author_commentary,omitempty"`
	UserComments     []any     `json:"user_comments,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	UpdatedBy        string    `json:"updated_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Doc is an un-persisted (metadata, content) pair returned by disk reads.
type Doc struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	Content  string         `json:"content"`
}

// FamilyGroup is one logical document's history within a section listing.
type FamilyGroup struct {
	Family    string     `json:"family"`
	Artifacts []Artifact `json:"artifacts"`
}

// kindRank orders lineage kinds for display: the canonical document first,
// then its in-place revisions, then forks, then anything else.
func kindRank(kind string) int {
	switch kind {
	case KindCore:
		return 0
	case KindRevision:
		return 1
	case KindFork:
		return 2
	default:
		return 3
	}
}

// SortByLineage orders artifacts by kind priority, then title.
func SortByLineage(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		ri, rj := kindRank(artifacts[i].Revision.Kind), kindRank(artifacts[j].Revision.Kind)
		if ri != rj {
			return ri < rj
		}
		return artifacts[i].Title < artifacts[j].Title
	})
}

// SortByTitle orders artifacts alphabetically by title, slug as tiebreak.
func SortByTitle(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Title != artifacts[j].Title {
			return artifacts[i].Title < artifacts[j].Title
		}
		return artifacts[i].Slug < artifacts[j].Slug
	})
}
