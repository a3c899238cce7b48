package mermaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"graph TD", "graph TD\nA[Web] --> B[DB]"},
		{"graph LR", "graph LR\nA[Web] --> B[DB]"},
		{"flowchart LR", "flowchart LR\nA[Web] --> B[DB]"},
		{"already canonical", "flowchart TD\nA[Web] --> B[DB]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			assert.True(t, strings.HasPrefix(got, "flowchart TD\n"), "got: %q", got)
			assert.Equal(t, 1, strings.Count(got, "flowchart TD"))
		})
	}

	t.Run("missing header is prepended", func(t *testing.T) {
		got := Sanitize("A[Web] --> B[DB]")
		assert.Equal(t, "flowchart TD\nA[Web] --> B[DB];\n", got)
	})
}

func TestSanitizeEmpty(t *testing.T) {
	assert.Equal(t, FallbackDiagram, Sanitize(""))
	assert.Equal(t, FallbackDiagram, Sanitize("   \n\t"))
}

func TestSanitizeTerminators(t *testing.T) {
	t.Run("edge lines gain semicolons", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web] --> B[DB]")
		assert.Contains(t, got, "A[Web] --> B[DB];")
	})

	t.Run("existing semicolons are not doubled", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web] --> B[DB];")
		assert.NotContains(t, got, ";;")
	})

	t.Run("node declaration lines lose semicolons", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web Tier];\nA --> B[DB]")
		assert.Contains(t, got, "A[Web Tier]\n")
		assert.Contains(t, got, "A --> B[DB];")
	})
}

func TestSanitizeSubgraphs(t *testing.T) {
	t.Run("parenthesized qualifier is quoted", func(t *testing.T) {
		got := Sanitize("flowchart TD\nsubgraph Web Tier (Public)\nA[Web]\nend")
		assert.Contains(t, got, `subgraph "Web Tier (Public)"`)
	})

	t.Run("stray semicolon on subgraph line is dropped", func(t *testing.T) {
		got := Sanitize("flowchart TD\nsubgraph Data;\nA[DB]\nend")
		assert.Contains(t, got, "subgraph Data\n")
	})

	t.Run("end lines stay bare", func(t *testing.T) {
		got := Sanitize("flowchart TD\nsubgraph Data\nA[DB]\nend")
		assert.Contains(t, got, "\nend")
		assert.NotContains(t, got, "end;")
	})
}

func TestSanitizeLabels(t *testing.T) {
	t.Run("commas are removed from labels", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web, App Tier] --> B[DB]")
		assert.Contains(t, got, "A[Web App Tier]")
	})

	t.Run("whitespace runs collapse inside labels", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web   App] --> B[DB]")
		assert.Contains(t, got, "A[Web App]")
	})

	t.Run("dotted edge labels are piped", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Web] -. logs .-> B[Monitor]")
		assert.Contains(t, got, "A[Web] -. |logs| .-> B[Monitor];")
	})
}

func TestSanitizeGluedNodes(t *testing.T) {
	t.Run("glued edge is split onto its own line", func(t *testing.T) {
		got := Sanitize("flowchart TD\nA[Client] --> B[App Service]C --> D[SQL DB]")
		assert.Contains(t, got, "B[App Service];\nC --> D[SQL DB];")
	})

	t.Run("both halves of a split line are terminated", func(t *testing.T) {
		got := Sanitize("A -. label .-> B[c,d]E --> F")
		assert.Equal(t, "flowchart TD\nA -. |label| .-> B[cd];\nE --> F;\n", got)
	})
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		FallbackDiagram,
		"flowchart TD\nA[Client] -->|HTTPS| B[Azure App Service];\nB --> C[Azure SQL Database];\n",
		"graph LR\nsubgraph Web Tier (Public)\nA[Web, App]\nend\nA -. logs .-> B[Monitor]",
		"flowchart TD\nA[Client] --> B[App Service]C --> D[SQL DB]",
		"A -. label .-> B[c,d]E --> F",
	}
	for _, input := range inputs {
		once := Sanitize(input)
		assert.Equal(t, once, Sanitize(once))
	}
}

func TestSanitizeTrailingNewline(t *testing.T) {
	got := Sanitize("flowchart TD\nA --> B")
	assert.True(t, strings.HasSuffix(got, ";\n"))
	assert.False(t, strings.HasSuffix(got, "\n\n"))
}
