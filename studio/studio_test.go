package studio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/mcpstudio/dbopen"
	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/vecindex"
	_ "modernc.org/sqlite"
)

// stubLLM returns a canned response and records every request it sees.
type stubLLM struct {
	response string
	err      error
	requests []llm.ChatRequest
}

func (s *stubLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.response, Model: "stub"}, nil
}

func (s *stubLLM) Model() string { return "stub" }

func (s *stubLLM) last(t *testing.T) llm.ChatRequest {
	t.Helper()
	if len(s.requests) == 0 {
		t.Fatal("no model call recorded")
	}
	return s.requests[len(s.requests)-1]
}

// stubEmbedder produces a constant unit vector. Retrieval ordering is
// covered in the vecindex tests; here only the plumbing matters.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (stubEmbedder) Dimension() int { return 3 }
func (stubEmbedder) Model() string  { return "stub" }

// setupService builds a Service over an in-memory database with the given
// model stub and a registered test user.
func setupService(t *testing.T, model llm.Client) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := vecindex.InitSchema(db); err != nil {
		t.Fatalf("vecindex schema: %v", err)
	}
	idx := vecindex.NewSQLite(db, "stub", nil)

	cfg := &Config{UploadDir: t.TempDir()}
	svc, err := New(db, stubEmbedder{}, idx, model, cfg, nil,
		WithURLValidator(func(string) error { return nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Store().CreateUser(context.Background(),
		&userFixture, "test-password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return svc
}

func TestInitiateFromPrompt_Naming(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()

	long := "Build an assistant that answers questions about maritime law"
	m, err := svc.InitiateFromPrompt(ctx, testUserID, long)
	if err != nil {
		t.Fatalf("InitiateFromPrompt: %v", err)
	}
	if !strings.HasSuffix(m.Name, "...") {
		t.Fatalf("long prompt name must be truncated: %q", m.Name)
	}
	if len([]rune(m.Name)) > 33 {
		t.Fatalf("name too long: %q", m.Name)
	}
	if m.Goal != long {
		t.Fatalf("goal must be the raw prompt: %q", m.Goal)
	}
	if m.Domain != "General" || m.Roles != "User, AI" {
		t.Fatalf("defaults: domain=%q roles=%q", m.Domain, m.Roles)
	}

	short, err := svc.InitiateFromPrompt(ctx, testUserID, "Short prompt")
	if err != nil {
		t.Fatal(err)
	}
	if short.Name != "Short prompt" {
		t.Fatalf("short prompt name: got %q", short.Name)
	}

	if _, err := svc.InitiateFromPrompt(ctx, testUserID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank prompt: got %v", err)
	}
}

func TestGetMCP_OwnerScoped(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()

	m, err := svc.CreateMCP(ctx, testUserID, "Helper", "Legal", "Answer questions", "User, AI")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetMCP(ctx, m.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner get: got %v, want ErrNotFound", err)
	}
	got, err := svc.GetMCP(ctx, m.ID, testUserID)
	if err != nil || got.Name != "Helper" {
		t.Fatalf("owner get: %v, %+v", err, got)
	}
}

func TestUpdateMCP_RejectsInvalidDefinition(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "X", "", "", "")

	bad := `{"system_prompt": ""}`
	if _, err := svc.UpdateMCP(ctx, m.ID, testUserID, mcpUpdateWithDefinition(bad)); !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("invalid definition: got %v, want ErrSchemaViolation", err)
	}

	good := `{"system_prompt":"p","input_schema_description":"i","output_schema_description":"o"}`
	updated, err := svc.UpdateMCP(ctx, m.ID, testUserID, mcpUpdateWithDefinition(good))
	if err != nil {
		t.Fatalf("valid definition: %v", err)
	}
	if updated.DefinitionJSON != good {
		t.Fatalf("definition not stored: %q", updated.DefinitionJSON)
	}
}

func TestExport_BeforeGeneration(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "Draft", "", "", "")

	// Markdown degrades to an explanatory document.
	filename, content, err := svc.Export(ctx, m.ID, testUserID, "markdown")
	if err != nil {
		t.Fatalf("markdown export: %v", err)
	}
	if !strings.Contains(filename, "no_definition") {
		t.Fatalf("filename: %q", filename)
	}
	if !strings.Contains(string(content), "No structured definition") {
		t.Fatalf("content: %q", content)
	}

	// Structured formats refuse.
	if _, _, err := svc.Export(ctx, m.ID, testUserID, "json"); !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("json export: got %v, want ErrNotGenerated", err)
	}
	if _, _, err := svc.Export(ctx, m.ID, testUserID, "yaml"); !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("yaml export: got %v, want ErrNotGenerated", err)
	}
}

func TestExport_AfterGeneration(t *testing.T) {
	svc := setupService(t, &stubLLM{response: validDefinitionJSON})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "My MCP (v2)", "Legal", "Goal", "User, AI")
	if _, err := svc.Generate(ctx, m.ID, testUserID); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	filename, content, err := svc.Export(ctx, m.ID, testUserID, "yaml")
	if err != nil {
		t.Fatalf("yaml export: %v", err)
	}
	if !strings.HasSuffix(filename, "_definition.yaml") {
		t.Fatalf("filename: %q", filename)
	}
	if !strings.Contains(string(content), "system_prompt:") {
		t.Fatalf("yaml content: %q", content)
	}

	if _, _, err := svc.Export(ctx, m.ID, testUserID, "pdf"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown format: got %v", err)
	}
}

func TestDeleteMCP_ClearsIndex(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "X", "", "", "")

	svc.idx.Add(ctx, scopeFor(m.ID), []vecindex.Entry{
		{ID: "c1", Text: "chunk", Source: "doc.txt", Vector: []float32{1, 0, 0}},
	})

	if err := svc.DeleteMCP(ctx, m.ID, testUserID); err != nil {
		t.Fatalf("DeleteMCP: %v", err)
	}
	if _, err := svc.GetMCP(ctx, m.ID, testUserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: got %v", err)
	}
	results, _ := svc.idx.Search(ctx, scopeFor(m.ID), []float32{1, 0, 0}, 5)
	if len(results) != 0 {
		t.Fatalf("index not cleared: %v", results)
	}

	if err := svc.DeleteMCP(ctx, m.ID, testUserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}
