package studio

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/mcpstudio/llm"
)

func TestTestRun_ExecutesStoredPrompt(t *testing.T) {
	model := &stubLLM{response: validDefinitionJSON}
	svc := setupService(t, model)
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "Helper", "", "", "")
	if _, err := svc.Generate(ctx, m.ID, testUserID); err != nil {
		t.Fatal(err)
	}

	model.response = "Here is the cited answer."
	res, err := svc.TestRun(ctx, m.ID, testUserID, "What is admiralty law?")
	if err != nil {
		t.Fatalf("TestRun: %v", err)
	}
	if res.LLMOutput != "Here is the cited answer." {
		t.Fatalf("output: %q", res.LLMOutput)
	}
	if res.SystemPromptUsed != "You are a careful legal research assistant." {
		t.Fatalf("system prompt: %q", res.SystemPromptUsed)
	}

	req := model.last(t)
	if req.Temperature != llm.TempTestRun {
		t.Fatalf("temperature: got %v, want %v", req.Temperature, llm.TempTestRun)
	}
	if req.Messages[0].Content != res.SystemPromptUsed {
		t.Fatal("stored system prompt must drive the run")
	}
	if req.Messages[1].Content != "What is admiralty law?" {
		t.Fatalf("user input: %q", req.Messages[1].Content)
	}
}

func TestTestRun_RequiresDefinition(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "Helper", "", "", "")

	if _, err := svc.TestRun(ctx, m.ID, testUserID, "input"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing definition: got %v, want ErrInvalidInput", err)
	}
}

func TestTestRun_NotOwned(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	if _, err := svc.TestRun(context.Background(), "missing", testUserID, "input"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTestRun_RequiresInput(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "Helper", "", "", "")
	if _, err := svc.TestRun(ctx, m.ID, testUserID, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank input: got %v", err)
	}
}
