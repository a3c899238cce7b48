package components

import (
	"regexp"
	"sort"
	"strings"
)

// Node-shape patterns that carry a label: [..], ((..)), {{..}}, (..).
// Double-bracket shapes are matched first so ((x)) is not read as (x).
var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[(.*?)\]`),
	regexp.MustCompile(`\(\((.*?)\)\)`),
	regexp.MustCompile(`\{\{(.*?)\}\}`),
	regexp.MustCompile(`\((.*?)\)`),
}

// FromDiagram pulls every distinct labeled node out of sanitized Mermaid
// source and classifies each into a component type and cloud provider.
// Duplicate labels are deduplicated by label text; results are sorted by
// name so output is deterministic.
func FromDiagram(diagram string) []DiagramComponent {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(diagram, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, pat := range labelPatterns {
			for _, m := range pat.FindAllStringSubmatch(line, -1) {
				label := strings.TrimSpace(m[1])
				if label != "" {
					seen[label] = struct{}{}
				}
			}
			// Consume matched shapes so the looser single-paren pattern
			// cannot re-match inside ((..)) or {{..}}.
			line = pat.ReplaceAllString(line, " ")
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]DiagramComponent, 0, len(names))
	for _, name := range names {
		out = append(out, DiagramComponent{
			Name:     name,
			Type:     classify(name, typeRules, TypeOther),
			Provider: classify(name, providerRules, ProviderGeneric),
		})
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
