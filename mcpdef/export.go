package mcpdef

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Meta carries the definition record fields that appear in exports.
type Meta struct {
	ID     string
	Name   string
	Domain string
	Goal   string
}

// ExportFilename builds the download filename for an export. Characters
// outside [a-zA-Z0-9] in the name are replaced with underscores.
func ExportFilename(meta Meta, ext string) string {
	var sb strings.Builder
	for _, r := range meta.Name {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return fmt.Sprintf("MCP_%s_%s_definition.%s", meta.ID, sb.String(), ext)
}

// ExportMarkdown renders the definition as a human-readable document.
func ExportMarkdown(meta Meta, def *Definition) string {
	constraintsMD := "No constraints defined."
	if len(def.Constraints) > 0 {
		lines := make([]string, len(def.Constraints))
		for i, c := range def.Constraints {
			lines[i] = "- " + c
		}
		constraintsMD = strings.Join(lines, "\n")
	}

	examplesMD := "No examples provided."
	if len(def.Examples) > 0 {
		var sb strings.Builder
		for i, ex := range def.Examples {
			fmt.Fprintf(&sb, "**Example %d:**\nInput:\n```\n%s\n```\nOutput:\n```\n%s\n```\n\n", i+1, ex.Input, ex.Output)
		}
		examplesMD = sb.String()
	}

	return fmt.Sprintf(`# MCP: %s

**ID:** %s
**Domain:** %s
**Primary Goal:** %s

## System Prompt

`+"```"+`
%s
`+"```"+`

## Input Schema / Description

%s

## Output Schema / Description

%s

## Constraints

%s

## Examples

%s
`,
		meta.Name, meta.ID, meta.Domain, meta.Goal,
		def.SystemPrompt,
		def.InputSchemaDescription,
		def.OutputSchemaDescription,
		constraintsMD,
		examplesMD)
}

// ExportJSON renders the definition as indented JSON.
func ExportJSON(def *Definition) ([]byte, error) {
	d := *def
	d.Normalize()
	return json.MarshalIndent(&d, "", "  ")
}

// ExportYAML renders the definition as YAML.
func ExportYAML(def *Definition) ([]byte, error) {
	d := *def
	d.Normalize()
	return yaml.Marshal(&d)
}
