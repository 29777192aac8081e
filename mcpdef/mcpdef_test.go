package mcpdef

import (
	"encoding/json"
	"strings"
	"testing"
)

const validJSON = `{
	"system_prompt": "You are a legal research assistant.",
	"input_schema_description": "A question about case law.",
	"output_schema_description": "A cited answer.",
	"constraints": ["Cite sources", "No speculation"],
	"examples": [{"input": "q", "output": "a"}]
}`

func TestParse_Valid(t *testing.T) {
	def, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.SystemPrompt != "You are a legal research assistant." {
		t.Fatalf("system_prompt: got %q", def.SystemPrompt)
	}
	if len(def.Constraints) != 2 {
		t.Fatalf("constraints: got %d, want 2", len(def.Constraints))
	}
	if len(def.Examples) != 1 || def.Examples[0].Input != "q" {
		t.Fatalf("examples: got %+v", def.Examples)
	}
}

func TestParse_FencedOutput(t *testing.T) {
	fenced := "```json\n" + validJSON + "\n```"
	def, err := Parse([]byte(fenced))
	if err != nil {
		t.Fatalf("Parse fenced: %v", err)
	}
	if def.SystemPrompt == "" {
		t.Fatal("system_prompt empty after fence stripping")
	}

	// Fence without a language tag.
	if _, err := Parse([]byte("```\n" + validJSON + "\n```")); err != nil {
		t.Fatalf("Parse bare fence: %v", err)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	cases := []string{
		`{}`,
		`{"system_prompt": "x"}`,
		`{"system_prompt": "x", "input_schema_description": "y"}`,
		`{"system_prompt": "  ", "input_schema_description": "y", "output_schema_description": "z"}`,
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Errorf("Parse(%s): expected error", c)
		}
	}
}

func TestParse_NotJSON(t *testing.T) {
	if _, err := Parse([]byte("I cannot generate that.")); err == nil {
		t.Fatal("expected error for prose output")
	}
	if _, err := Parse([]byte("")); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestParse_NormalizesLists(t *testing.T) {
	def, err := Parse([]byte(`{
		"system_prompt": "p",
		"input_schema_description": "i",
		"output_schema_description": "o"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if def.Constraints == nil || def.Examples == nil {
		t.Fatal("lists must be non-nil after parse")
	}

	out, err := ExportJSON(def)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "null") {
		t.Fatalf("export must not contain null lists: %s", out)
	}
	if !strings.Contains(string(out), `"constraints": []`) {
		t.Fatalf("expected empty constraints list: %s", out)
	}
}

func TestExportJSON_RoundTrip(t *testing.T) {
	def, _ := Parse([]byte(validJSON))
	out, err := ExportJSON(def)
	if err != nil {
		t.Fatal(err)
	}
	var back Definition
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back.OutputSchemaDescription != def.OutputSchemaDescription {
		t.Fatalf("round trip: got %q", back.OutputSchemaDescription)
	}
}

func TestExportYAML(t *testing.T) {
	def, _ := Parse([]byte(validJSON))
	out, err := ExportYAML(def)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "system_prompt: You are a legal research assistant.") {
		t.Fatalf("yaml missing system_prompt: %s", s)
	}
	if !strings.Contains(s, "- Cite sources") {
		t.Fatalf("yaml missing constraint: %s", s)
	}
}

func TestExportMarkdown(t *testing.T) {
	def, _ := Parse([]byte(validJSON))
	meta := Meta{ID: "mcp_1", Name: "Case Law Helper", Domain: "Legal", Goal: "Answer case law questions"}

	md := ExportMarkdown(meta, def)
	for _, want := range []string{
		"# MCP: Case Law Helper",
		"**Domain:** Legal",
		"## System Prompt",
		"You are a legal research assistant.",
		"- Cite sources",
		"**Example 1:**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportMarkdown_EmptyLists(t *testing.T) {
	def := &Definition{
		SystemPrompt:            "p",
		InputSchemaDescription:  "i",
		OutputSchemaDescription: "o",
	}
	def.Normalize()
	md := ExportMarkdown(Meta{ID: "1", Name: "X"}, def)
	if !strings.Contains(md, "No constraints defined.") {
		t.Error("missing constraints placeholder")
	}
	if !strings.Contains(md, "No examples provided.") {
		t.Error("missing examples placeholder")
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(Meta{ID: "7", Name: "My MCP (v2)"}, "md")
	want := "MCP_7_My_MCP__v2__definition.md"
	if got != want {
		t.Fatalf("filename: got %q, want %q", got, want)
	}
}
