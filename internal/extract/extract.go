// Package extract pulls diagram and Terraform payloads out of raw model output.
//
// Model responses arrive in one of three shapes: a strict JSON object with
// "diagram" and "terraform" fields, JSON-like text with fenced code blocks,
// or plain text with fenced blocks and no JSON wrapper. Extraction never
// fails; a field that cannot be found comes back as an empty string.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Payload is the result of extracting a model response.
type Payload struct {
	Diagram   string `json:"diagram"`
	Terraform string `json:"terraform"`
}

var (
	taggedFenceRe  = regexp.MustCompile("(?is)^```(mermaid|hcl|terraform|json)[ \\t]*\\n([\\s\\S]*?)```$")
	bareFenceRe    = regexp.MustCompile("(?s)^```[ \\t]*\\n?([\\s\\S]*?)```$")
	mermaidBlockRe = regexp.MustCompile("(?is)```mermaid[ \\t]*\\n([\\s\\S]*?)```")
	tfBlockRe      = regexp.MustCompile("(?is)```(terraform|hcl)[ \\t]*\\n([\\s\\S]*?)```")
)

// StripFences removes a surrounding triple-backtick fence, with or without a
// recognized language tag on the opening fence. Text without a matching
// fence passes through unchanged.
func StripFences(text string) string {
	if text == "" {
		return ""
	}
	s := strings.TrimSpace(text)
	if m := taggedFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[2])
	}
	if m := bareFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// FromContent extracts the diagram and Terraform fields from a raw model
// response. A strict JSON parse wins; otherwise fenced blocks are searched
// independently for each field.
func FromContent(content string) Payload {
	if content == "" {
		return Payload{}
	}

	var obj struct {
		Diagram   string `json:"diagram"`
		Terraform string `json:"terraform"`
		InfraCode string `json:"infra_code"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		tf := obj.Terraform
		if tf == "" {
			tf = obj.InfraCode
		}
		return Payload{
			Diagram:   StripFences(obj.Diagram),
			Terraform: StripFences(tf),
		}
	}

	var out Payload
	if m := mermaidBlockRe.FindStringSubmatch(content); m != nil {
		out.Diagram = strings.TrimSpace(m[1])
	}
	if m := tfBlockRe.FindStringSubmatch(content); m != nil {
		out.Terraform = strings.TrimSpace(m[2])
	}
	return out
}
