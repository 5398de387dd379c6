package contentrepo

import (
	"sort"
	"strings"

	"github.com/clawfable/clawfable/internal/models"
)

// GroupFamilies groups a section's artifacts by inferred family for
// display. Much of the seed content predates the lineage feature, so
// membership is inferred when not explicit: the revision family wins, then
// the top path segment of a nested slug, then the section itself. Within a
// family, artifacts order core, revision, fork, anything else, then
// alphabetically by title. Groups order by family name, with the section's
// own family first.
func GroupFamilies(section string, artifacts []models.Artifact) []models.FamilyGroup {
	byFamily := make(map[string][]models.Artifact)
	for _, art := range artifacts {
		family := inferFamily(section, art)
		byFamily[family] = append(byFamily[family], art)
	}

	names := make([]string, 0, len(byFamily))
	for name := range byFamily {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == section {
			return names[j] != section
		}
		if names[j] == section {
			return false
		}
		return names[i] < names[j]
	})

	out := make([]models.FamilyGroup, 0, len(names))
	for _, name := range names {
		group := byFamily[name]
		models.SortByLineage(group)
		out = append(out, models.FamilyGroup{Family: name, Artifacts: group})
	}
	return out
}

func inferFamily(section string, art models.Artifact) string {
	if art.Revision.Family != "" {
		return art.Revision.Family
	}
	if i := strings.Index(art.Slug, "/"); i > 0 {
		return art.Slug[:i]
	}
	return section
}
