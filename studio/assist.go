package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/mcpdef"
)

// SuggestRequest carries the definition components under review. All
// fields are optional; the reviewer works with whatever is present.
type SuggestRequest struct {
	SystemPrompt            string           `json:"system_prompt"`
	InputSchemaDescription  string           `json:"input_schema_description"`
	OutputSchemaDescription string           `json:"output_schema_description"`
	Constraints             []string         `json:"constraints"`
	Examples                []mcpdef.Example `json:"examples"`
	MCPGoal                 string           `json:"mcp_goal"`
	MCPDomain               string           `json:"mcp_domain"`
}

// Suggest asks the model for improvement suggestions on a definition.
func (svc *Service) Suggest(ctx context.Context, req *SuggestRequest) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\nDomain: %s\n", orNA(req.MCPGoal), orNA(req.MCPDomain))
	if req.SystemPrompt != "" {
		fmt.Fprintf(&sb, "\nSystem Prompt:\n```\n%s\n```\n", req.SystemPrompt)
	}
	if req.InputSchemaDescription != "" {
		fmt.Fprintf(&sb, "\nInput Schema Desc: %s\n", req.InputSchemaDescription)
	}
	if req.OutputSchemaDescription != "" {
		fmt.Fprintf(&sb, "\nOutput Schema Desc: %s\n", req.OutputSchemaDescription)
	}
	if len(req.Constraints) > 0 {
		fmt.Fprintf(&sb, "\nConstraints:\n- %s\n", strings.Join(req.Constraints, "\n- "))
	}
	if len(req.Examples) > 0 {
		fmt.Fprintf(&sb, "\nExamples Count: %d\n", len(req.Examples))
	}

	return svc.assistChat(ctx,
		"You are an expert reviewer of Model Context Protocols (MCPs). Analyze the provided MCP definition components. Provide actionable suggestions for improvement, focusing on clarity, completeness, potential ambiguities, enforceability of constraints, and overall effectiveness based on the goal and domain. Format suggestions as a bulleted list.",
		fmt.Sprintf("Please review the following MCP definition and provide suggestions for improvement.\n\n%s\n\nSuggestions:", sb.String()))
}

// ConstraintCheck is the result of a constraint evaluation.
type ConstraintCheck struct {
	Feedback        string `json:"feedback"`
	ViolationsFound bool   `json:"violations_found"`
}

// CheckConstraints asks the model whether content violates any of the
// listed constraints. The violation flag is a keyword heuristic over the
// feedback text; the feedback itself is the authoritative answer.
func (svc *Service) CheckConstraints(ctx context.Context, content string, constraints []string) (*ConstraintCheck, error) {
	if len(constraints) == 0 {
		return &ConstraintCheck{
			Feedback:        "No constraints provided in the definition to check against.",
			ViolationsFound: false,
		}, nil
	}

	lines := make([]string, len(constraints))
	for i, c := range constraints {
		lines[i] = "- " + c
	}

	feedback, err := svc.assistChat(ctx,
		"You are an expert evaluator for Model Context Protocols (MCPs). Your task is to determine if the provided Content violates any of the specified constraints. List any violations found, referencing the specific constraint and the violating part of the content. If no violations are found, state that clearly.",
		fmt.Sprintf("Please check if the following Content violates any of the rules listed in the Constraints.\n\n**Constraints:**\n```\n%s\n```\n\n**Content to Check:**\n```\n%s\n```\n\n**Evaluation Feedback (list violations or state none found):**",
			strings.Join(lines, "\n"), content))
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(feedback)
	found := strings.Contains(lower, "violation") && !strings.Contains(lower, "no violation")
	return &ConstraintCheck{Feedback: feedback, ViolationsFound: found}, nil
}

// FieldRequest targets one definition field for rewriting. FullDefinition
// gives the model the rest of the definition as context.
type FieldRequest struct {
	FieldName      string         `json:"field_name"`
	SelectedText   string         `json:"selected_text"`
	FullDefinition map[string]any `json:"full_definition"`
}

// Rephrase rewrites the selected text of one field without changing its
// meaning.
func (svc *Service) Rephrase(ctx context.Context, req *FieldRequest) (string, error) {
	if req.SelectedText == "" {
		return "", fmt.Errorf("%w: selected_text is required", ErrInvalidInput)
	}
	return svc.assistChat(ctx,
		"You are an expert editor. Rephrase the given text to improve clarity and precision while preserving its meaning. Use the provided context to keep terminology consistent. Respond with the rephrased text only.",
		fmt.Sprintf("%s\n\n**Text to Rephrase (%s):**\n```\n%s\n```\n\n**Rephrased Text:**",
			fieldContext(req.FullDefinition, req.FieldName), req.FieldName, req.SelectedText))
}

// Expand elaborates on the selected text of one field.
func (svc *Service) Expand(ctx context.Context, req *FieldRequest) (string, error) {
	if req.SelectedText == "" {
		return "", fmt.Errorf("%w: selected_text is required", ErrInvalidInput)
	}
	return svc.assistChat(ctx,
		"You are an expert writer. Expand the given text with relevant detail while keeping it focused. Use the provided context to stay consistent with the rest of the definition. Respond with the expanded text only.",
		fmt.Sprintf("%s\n\n**Text to Expand (%s):**\n```\n%s\n```\n\n**Expanded Text (incorporating the original selection seamlessly):**",
			fieldContext(req.FullDefinition, req.FieldName), req.FieldName, req.SelectedText))
}

// ComponentRequest asks for fresh content for one definition field.
type ComponentRequest struct {
	FieldToGenerate   string         `json:"field_to_generate"`
	CurrentDefinition map[string]any `json:"current_definition"`
	MCPGoal           string         `json:"mcp_goal"`
	MCPDomain         string         `json:"mcp_domain"`
}

// componentSpec drives GenerateComponent: each generatable field gets its
// own instruction suffix, output mode and parser.
type componentSpec struct {
	systemSuffix string
	instruction  string
	jsonMode     bool
	parse        func(raw string) (any, error)
}

var componentSpecs = map[string]componentSpec{
	"system_prompt": {
		instruction: "Please generate ONLY the text content for the **system_prompt** component.",
		parse:       parsePlainText,
	},
	"input_schema_description": {
		instruction: "Please generate ONLY the text content for the **input_schema_description** component.",
		parse:       parsePlainText,
	},
	"output_schema_description": {
		instruction: "Please generate ONLY the text content for the **output_schema_description** component.",
		parse:       parsePlainText,
	},
	"constraints": {
		systemSuffix: " Output the constraints as a JSON list of strings.",
		instruction:  "Please generate a JSON list of strings for the **constraints** component.",
		jsonMode:     true,
		parse:        parseConstraintList,
	},
	"examples": {
		systemSuffix: " Output the examples as a JSON list of objects, each with 'input' and 'output' keys.",
		instruction:  "Please generate a JSON list of input/output examples for the **examples** component.",
		jsonMode:     true,
		parse:        parseExampleList,
	},
}

// GenerateComponent produces content for a single definition field. The
// returned value is a string for text fields, []string for constraints,
// and []mcpdef.Example for examples.
func (svc *Service) GenerateComponent(ctx context.Context, req *ComponentRequest) (any, error) {
	spec, ok := componentSpecs[req.FieldToGenerate]
	if !ok {
		return nil, fmt.Errorf("%w: invalid field_to_generate %q", ErrInvalidInput, req.FieldToGenerate)
	}

	var sb strings.Builder
	sb.WriteString("Current MCP Definition Context:\n")
	if len(req.CurrentDefinition) > 0 {
		for _, key := range sortedKeys(req.CurrentDefinition) {
			if key == req.FieldToGenerate {
				continue
			}
			switch v := req.CurrentDefinition[key].(type) {
			case []any:
				fmt.Fprintf(&sb, "  %s: (List of %d items)\n", key, len(v))
			case string:
				if t := truncateRunes(v, 100); len(t) < len(v) {
					fmt.Fprintf(&sb, "  %s: %s...\n", key, t)
				} else {
					fmt.Fprintf(&sb, "  %s: %s\n", key, v)
				}
			default:
				fmt.Fprintf(&sb, "  %s: %v\n", key, v)
			}
		}
	} else {
		sb.Reset()
		sb.WriteString("No current definition context provided.")
	}
	fmt.Fprintf(&sb, "\nGoal: %s\nDomain: %s\n", orNA(req.MCPGoal), orNA(req.MCPDomain))

	system := fmt.Sprintf(
		"You are an expert assistant helping create Model Context Protocols (MCPs). Generate ONLY the content for the specified component ('%s'), using the provided context. Be concise and accurate.%s",
		req.FieldToGenerate, spec.systemSuffix)

	resp, err := svc.model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: sb.String() + "\n\n" + spec.instruction},
		},
		Temperature: llm.TempAssist,
		JSONMode:    spec.jsonMode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: assist model: %v", ErrUpstreamUnavailable, err)
	}
	out, err := spec.parse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return out, nil
}

// assistChat runs one system+user exchange at the assist temperature and
// strips the backtick wrapping models are fond of.
func (svc *Service) assistChat(ctx context.Context, system, human string) (string, error) {
	resp, err := svc.model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: human},
		},
		Temperature: llm.TempAssist,
	})
	if err != nil {
		return "", fmt.Errorf("%w: assist model: %v", ErrUpstreamUnavailable, err)
	}
	return strings.Trim(strings.TrimSpace(resp.Content), "`"), nil
}

// fieldContext renders the definition minus the target field as labeled
// context lines. Keys are sorted so identical inputs produce identical
// prompts.
func fieldContext(def map[string]any, excludeField string) string {
	if len(def) == 0 {
		return "No additional context provided."
	}
	var sb strings.Builder
	sb.WriteString("Full MCP Definition Context (excluding target field):\n")
	for _, key := range sortedKeys(def) {
		if key == excludeField {
			continue
		}
		raw, err := json.MarshalIndent(def[key], "", "  ")
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "  %s: %s...\n", key, truncateRunes(string(raw), 200))
	}
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateRunes caps s at n runes so truncation never splits a
// multi-byte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func parsePlainText(raw string) (any, error) {
	return strings.Trim(strings.TrimSpace(raw), "`"), nil
}

func parseConstraintList(raw string) (any, error) {
	text := stripJSONWrapping(raw)
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}
	// Some models wrap the list in an object keyed by the field name.
	var wrapped struct {
		Constraints []string `json:"constraints"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Constraints != nil {
		return wrapped.Constraints, nil
	}
	return nil, fmt.Errorf("expected a JSON list of strings")
}

func parseExampleList(raw string) (any, error) {
	text := stripJSONWrapping(raw)
	var list []mcpdef.Example
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Examples []mcpdef.Example `json:"examples"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Examples != nil {
		return wrapped.Examples, nil
	}
	return nil, fmt.Errorf("expected a JSON list of input/output examples")
}

// stripJSONWrapping removes a surrounding markdown code fence.
func stripJSONWrapping(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
