// Package mcpdef holds the structured MCP definition model: the JSON
// contract the generator must satisfy, the validating parser applied to raw
// model output, and the export renderers (markdown, JSON, YAML).
package mcpdef

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Example is one few-shot input/output pair.
type Example struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// Definition is the structured MCP definition produced by generation.
// Constraints and Examples are never nil after Parse or Normalize, so
// serialization emits empty lists rather than null.
type Definition struct {
	SystemPrompt            string    `json:"system_prompt" yaml:"system_prompt"`
	InputSchemaDescription  string    `json:"input_schema_description" yaml:"input_schema_description"`
	OutputSchemaDescription string    `json:"output_schema_description" yaml:"output_schema_description"`
	Constraints             []string  `json:"constraints" yaml:"constraints"`
	Examples                []Example `json:"examples" yaml:"examples"`
}

// Normalize replaces nil list fields with empty slices.
func (d *Definition) Normalize() {
	if d.Constraints == nil {
		d.Constraints = []string{}
	}
	if d.Examples == nil {
		d.Examples = []Example{}
	}
}

// Validate checks that the required text fields are present.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.SystemPrompt) == "" {
		return errors.New("mcpdef: system_prompt is required")
	}
	if strings.TrimSpace(d.InputSchemaDescription) == "" {
		return errors.New("mcpdef: input_schema_description is required")
	}
	if strings.TrimSpace(d.OutputSchemaDescription) == "" {
		return errors.New("mcpdef: output_schema_description is required")
	}
	return nil
}

// Parse decodes raw model output into a validated Definition. Markdown code
// fences around the JSON object are tolerated; anything else that fails to
// decode or validate is an error, and nothing is persisted upstream.
func Parse(raw []byte) (*Definition, error) {
	text := stripFences(strings.TrimSpace(string(raw)))
	if text == "" {
		return nil, errors.New("mcpdef: empty model output")
	}

	var def Definition
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("mcpdef: decode definition: %w", err)
	}
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "yaml", or empty).
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// SchemaPrompt is the format instruction block embedded in the generation
// system prompt. It mirrors the Definition JSON contract.
const SchemaPrompt = `The output must be a JSON object with exactly these keys:
{
  "system_prompt": string,             // the core system prompt for the AI model
  "input_schema_description": string,  // description of the expected input format or structure
  "output_schema_description": string, // description of the desired output format or structure
  "constraints": [string],             // key constraints or guardrails the AI must follow
  "examples": [                        // few-shot examples, may be empty
    {"input": string, "output": string}
  ]
}`
