package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/mcpdef"
)

// TestRunResult is one live execution of a stored definition.
type TestRunResult struct {
	LLMOutput        string `json:"llm_output"`
	SystemPromptUsed string `json:"system_prompt_used"`
}

// TestRun executes an owned MCP's stored system prompt against a user
// input at the test-run temperature. It requires a generated definition
// with a non-empty system prompt.
func (svc *Service) TestRun(ctx context.Context, mcpID, ownerID, userInput string) (*TestRunResult, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, fmt.Errorf("%w: user input is required", ErrInvalidInput)
	}
	m, err := svc.GetMCP(ctx, mcpID, ownerID)
	if err != nil {
		return nil, err
	}
	if m.DefinitionJSON == "" {
		return nil, fmt.Errorf("%w: MCP definition or system prompt is missing", ErrInvalidInput)
	}

	def, err := mcpdef.Parse([]byte(m.DefinitionJSON))
	if err != nil {
		return nil, fmt.Errorf("studio: stored definition unreadable: %w", err)
	}
	if strings.TrimSpace(def.SystemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt within MCP definition is empty", ErrInvalidInput)
	}

	svc.logger.Info("test run", "mcp_id", mcpID, "user_id", ownerID)
	resp, err := svc.model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: def.SystemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature: llm.TempTestRun,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: test model: %v", ErrUpstreamUnavailable, err)
	}

	return &TestRunResult{
		LLMOutput:        resp.Content,
		SystemPromptUsed: def.SystemPrompt,
	}, nil
}
