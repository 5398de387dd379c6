// Package markdown extracts and normalizes front matter from wiki articles.
//
// Front matter is loosely typed and has accumulated aliases over the life of
// the seed content (type/kind, version/id, fork_of/source). Everything past
// this package is the closed, strongly-typed model: the raw metadata bag
// never leaks into the repository layer.
package markdown

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/clawfable/clawfable/internal/models"
)

const descriptionLimit = 180

var whitespaceRe = regexp.MustCompile(`\s+`)

// Doc holds the parsed output of one markdown file.
type Doc struct {
	FrontMatter map[string]any
	Body        string
	Title       string
	Description string
	Scope       models.ScopeMap
	Revision    *models.Revision
}

// Parse splits YAML front matter (between leading --- delimiters) from the
// markdown body and derives display metadata. name is the file or slug name
// used for the humanized title fallback.
func Parse(data []byte, name string) *Doc {
	fm, body := splitFrontMatter(data)
	return &Doc{
		FrontMatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body, name),
		Description: deriveDescription(fm, body),
		Scope:       NormalizeScope(fieldMap(fm, "copy_paste_scope")),
		Revision:    NormalizeRevision(fieldMap(fm, "revision")),
	}
}

// splitFrontMatter separates the YAML header from the body. Missing or
// invalid YAML means the entire input is body; parsing never fails.
func splitFrontMatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle resolves the display title: front-matter "title", then the
// first H1 heading, then the humanized file name.
func deriveTitle(fm map[string]any, body, name string) string {
	if s := fieldString(fm, "title"); s != "" {
		return s
	}
	if h := firstHeading(body); h != "" {
		return h
	}
	return HumanizeName(name)
}

// deriveDescription resolves the short description: front-matter
// "description", then the first run of non-heading body lines (up to four),
// whitespace-collapsed and capped, then a generic fallback.
func deriveDescription(fm map[string]any, body string) string {
	if s := fieldString(fm, "description"); s != "" {
		return clip(s)
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if len(lines) > 0 {
				break
			}
			continue
		}
		lines = append(lines, trimmed)
		if len(lines) == 4 {
			break
		}
	}
	if len(lines) > 0 {
		return clip(strings.Join(lines, " "))
	}

	if h := firstHeading(body); h != "" {
		return clip(h)
	}
	return "Wiki article in this section."
}

// NormalizeScope maps a loose scope bag to a map with exactly the recognized
// keys. A flag is set only when the raw value is the literal boolean true;
// truthy strings do not count.
func NormalizeScope(raw map[string]any) models.ScopeMap {
	scope := make(models.ScopeMap, len(models.ScopeKeys))
	for _, key := range models.ScopeKeys {
		v, ok := raw[key]
		scope[key] = ok && v == true
	}
	return scope
}

// NormalizeRevision maps a loose revision bag to the canonical lineage
// record, folding historical aliases (type for kind, version for id,
// fork_of for source). A recognized status is lowercased; anything else
// passes through unchanged. Nil input means no revision block.
func NormalizeRevision(raw map[string]any) *models.Revision {
	if raw == nil {
		return nil
	}

	status := firstNonEmpty(fieldString(raw, "status"), "draft")
	for _, known := range models.RevisionStatuses {
		if strings.EqualFold(status, known) {
			status = known
			break
		}
	}

	return &models.Revision{
		Family:         firstNonEmpty(fieldString(raw, "family"), "default"),
		ID:             firstNonEmpty(fieldString(raw, "id"), fieldString(raw, "version"), "v1"),
		Kind:           firstNonEmpty(fieldString(raw, "kind"), fieldString(raw, "type"), models.KindRevision),
		Status:         status,
		ParentRevision: fieldString(raw, "parent_revision"),
		Source:         firstNonEmpty(fieldString(raw, "fork_of"), fieldString(raw, "source")),
	}
}

// HumanizeName turns a file or slug name into a readable title
// ("memory-rituals" becomes "Memory rituals").
func HumanizeName(name string) string {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".md")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.TrimSpace(whitespaceRe.ReplaceAllString(base, " "))
	if base == "" {
		return name
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func clip(s string) string {
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if len(s) <= descriptionLimit {
		return s
	}
	// Cut on a rune boundary so a multi-byte character is never split.
	cut := descriptionLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func fieldString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func fieldMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case map[string]any:
		return v
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
