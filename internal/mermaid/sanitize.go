// Package mermaid rewrites model-produced Mermaid source into the restricted
// dialect the frontend renderer accepts.
//
// Model output is frequently malformed: missing or nonstandard headers,
// inconsistent statement terminators, labels glued to the next node token,
// unquoted subgraph titles with parenthesized qualifiers, and commas inside
// node labels (which break the renderer's label parser). Sanitize repairs
// all of these. It never fails, and it is idempotent: sanitizing already
// sanitized source is a no-op.
package mermaid

import (
	"regexp"
	"strings"
)

// FallbackDiagram is returned for empty input so the frontend always has
// something renderable.
const FallbackDiagram = "flowchart TD\nA[Client] --> B[Service];\n"

var (
	headerRe        = regexp.MustCompile(`(?im)^(graph|flowchart)\s+(TD|LR)\b`)
	subgraphParenRe = regexp.MustCompile(`(?m)^\s*subgraph\s+([^\[\n"]+?)\s*\(([^)]+)\)\s*;?\s*$`)
	subgraphSemiRe  = regexp.MustCompile(`(?m)^(\s*subgraph\b[^\n;]*?);+\s*$`)
	dottedLabelRe   = regexp.MustCompile(`-\.\s+([^.|><\-\n][^.|><\-\n]*?)\s+\.\->`)
	gluedNodeRe     = regexp.MustCompile(`([\])])\s*([A-Za-z0-9_]+\s*[-.])`)
	labelRe         = regexp.MustCompile(`\[(.*?)\]`)
	hspaceRe        = regexp.MustCompile(`[ \t]+`)
)

// Sanitize normalizes arbitrary Mermaid source into renderer-safe form.
// Empty input yields FallbackDiagram rather than an error.
func Sanitize(src string) string {
	s := strings.TrimSpace(src)
	if s == "" {
		return FallbackDiagram
	}

	// Normalize the header to a single canonical "flowchart TD", prepending
	// one when the source has no recognized header at all.
	if headerRe.MatchString(s) {
		replaced := false
		s = headerRe.ReplaceAllStringFunc(s, func(m string) string {
			if replaced {
				return m
			}
			replaced = true
			return "flowchart TD"
		})
	} else {
		s = "flowchart TD\n" + s
	}

	// Rewrap subgraph titles carrying a parenthesized qualifier in quotes,
	// and drop stray terminators from subgraph header lines.
	s = subgraphParenRe.ReplaceAllString(s, `subgraph "$1 ($2)"`)
	s = subgraphSemiRe.ReplaceAllString(s, "$1")

	// '-. label .->'  ->  '-. |label| .->'
	s = dottedLabelRe.ReplaceAllString(s, "-. |$1| .->")

	// Repair labels glued to the next edge token, e.g. "C[App]SP --> D".
	// This must run before terminators so each split line gets its own.
	s = gluedNodeRe.ReplaceAllString(s, "$1\n$2")

	// Edge lines end with ';'; node, subgraph and end lines do not.
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		just := strings.TrimSpace(line)
		if just == "" {
			out = append(out, "")
			continue
		}
		if strings.HasPrefix(just, "subgraph") || just == "end" {
			out = append(out, just)
			continue
		}
		if isEdgeLine(just) {
			if !strings.HasSuffix(just, ";") {
				just += ";"
			}
			out = append(out, just)
		} else {
			out = append(out, strings.TrimRight(just, ";"))
		}
	}
	s = strings.Join(out, "\n")

	// Commas break the renderer's label parser; runs of whitespace inside a
	// label collapse to one space.
	s = labelRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[1 : len(m)-1]
		inner = strings.ReplaceAll(inner, ",", "")
		inner = hspaceRe.ReplaceAllString(inner, " ")
		return "[" + inner + "]"
	})

	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func isEdgeLine(line string) bool {
	return strings.Contains(line, "--") ||
		strings.Contains(line, ".->") ||
		strings.Contains(line, "---") ||
		strings.Contains(line, "<->")
}
