package contentrepo

import (
	"testing"

	"github.com/clawfable/clawfable/internal/models"
)

func art(slug, title, family, kind string) models.Artifact {
	return models.Artifact{
		Slug:     slug,
		Title:    title,
		Revision: models.Revision{Family: family, Kind: kind},
	}
}

func TestGroupFamilies_KindPriorityOrder(t *testing.T) {
	// Input deliberately shuffled; output must be core, revision, fork.
	input := []models.Artifact{
		art("x-f", "X fork", "x", models.KindFork),
		art("x", "X", "x", models.KindCore),
		art("x-r", "X rev", "x", models.KindRevision),
	}

	groups := GroupFamilies("soul", input)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	kinds := []string{}
	for _, a := range groups[0].Artifacts {
		kinds = append(kinds, a.Revision.Kind)
	}
	if kinds[0] != models.KindCore || kinds[1] != models.KindRevision || kinds[2] != models.KindFork {
		t.Errorf("order = %v", kinds)
	}
}

func TestGroupFamilies_InferenceChain(t *testing.T) {
	input := []models.Artifact{
		art("plain", "Plain", "", ""),                  // no family, flat slug: section
		art("forks/ava/alt", "Alt", "", ""),            // nested slug: top segment
		art("whatever", "Explicit", "lineage-x", ""),   // explicit family wins
	}

	groups := GroupFamilies("soul", input)
	byName := map[string]int{}
	for _, g := range groups {
		byName[g.Family] = len(g.Artifacts)
	}
	if byName["soul"] != 1 || byName["forks"] != 1 || byName["lineage-x"] != 1 {
		t.Errorf("groups = %v", byName)
	}

	// The section's own family leads; the rest are alphabetical.
	if groups[0].Family != "soul" {
		t.Errorf("first group = %q, want the section family first", groups[0].Family)
	}
	if groups[1].Family != "forks" || groups[2].Family != "lineage-x" {
		t.Errorf("group order = %q, %q", groups[1].Family, groups[2].Family)
	}
}

func TestGroupFamilies_Deterministic(t *testing.T) {
	input := []models.Artifact{
		art("b", "B", "fam", "revision"),
		art("a", "A", "fam", "revision"),
		art("c", "C", "fam", "mutation"), // unknown kind sorts last
	}

	for i := 0; i < 5; i++ {
		groups := GroupFamilies("soul", input)
		got := groups[0].Artifacts
		if got[0].Title != "A" || got[1].Title != "B" || got[2].Title != "C" {
			t.Fatalf("run %d: order = %q %q %q", i, got[0].Title, got[1].Title, got[2].Title)
		}
	}
}
