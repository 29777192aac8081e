package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/mcpstudio/auth"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

var apiTestSecret = bytes.Repeat([]byte("s"), 32)

// setupAPI wires the service routes behind the real auth middleware and
// returns the server plus a valid bearer token for the fixture user.
func setupAPI(t *testing.T, model *stubLLM) (*Service, *httptest.Server, string) {
	t.Helper()
	svc := setupService(t, model)

	r := chi.NewRouter()
	r.Use(auth.Middleware(apiTestSecret))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		svc.RegisterRoutes(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	token, err := auth.GenerateToken(apiTestSecret,
		&auth.Claims{UserID: testUserID, Email: userFixture.Email}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return svc, srv, token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAPI_RequiresAuth(t *testing.T) {
	_, srv, _ := setupAPI(t, &stubLLM{})
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/mcp", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", resp.StatusCode)
	}
}

func TestAPI_PromptInitiate(t *testing.T) {
	svc, srv, token := setupAPI(t, &stubLLM{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/prompt/initiate", token,
		map[string]string{"prompt": "Build a maritime law assistant"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", resp.StatusCode)
	}
	var out struct {
		MCPID string `json:"mcp_id"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.MCPID == "" {
		t.Fatal("missing mcp_id")
	}
	if _, err := svc.GetMCP(context.Background(), out.MCPID, testUserID); err != nil {
		t.Fatalf("created MCP not readable: %v", err)
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	model := &stubLLM{response: "not json at all"}
	svc, srv, token := setupAPI(t, model)
	m, _ := svc.CreateMCP(context.Background(), testUserID, "Helper", "", "", "")

	// Unknown MCP is a 404.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/mcp/nope", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown mcp: got %d, want 404", resp.StatusCode)
	}

	// Unparseable model output is a 422 and persists nothing.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/generate/mcp/"+m.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("schema violation: got %d, want 422", resp.StatusCode)
	}

	// Export before generation: markdown 200, json 404.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/mcp/"+m.ID+"/export/markdown", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("markdown export: got %d, want 200", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/mcp/"+m.ID+"/export/json", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("json export: got %d, want 404", resp.StatusCode)
	}
}

func TestAPI_RetrieveGlobalFlag(t *testing.T) {
	svc, srv, token := setupAPI(t, &stubLLM{})
	ctx := context.Background()
	m, _ := svc.CreateMCP(ctx, testUserID, "Helper", "", "", "")
	other, _ := svc.CreateMCP(ctx, testUserID, "Other", "", "", "")

	svc.idx.Add(ctx, scopeFor(m.ID), []vecindex.Entry{
		{ID: "c1", Text: "first", Source: "a.txt", Vector: []float32{1, 0, 0}},
	})
	svc.idx.Add(ctx, scopeFor(other.ID), []vecindex.Entry{
		{ID: "c2", Text: "second", Source: "b.txt", Vector: []float32{0.9, 0.1, 0}},
	})

	// Default stays scoped to one project.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/context/retrieve", token,
		map[string]any{"query": "q", "mcp_id": m.ID})
	var scoped struct {
		Results []vecindex.Result `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&scoped)
	resp.Body.Close()
	if len(scoped.Results) != 1 {
		t.Fatalf("scoped results: got %d, want 1", len(scoped.Results))
	}

	// The global flag spans the caller's projects.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/context/retrieve", token,
		map[string]any{"query": "q", "global": true})
	var global struct {
		Results []vecindex.Result `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&global)
	resp.Body.Close()
	if len(global.Results) != 2 {
		t.Fatalf("global results: got %d, want 2", len(global.Results))
	}

	// Asking for both at once is a client error.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/context/retrieve", token,
		map[string]any{"query": "q", "mcp_id": m.ID, "global": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mcp_id+global: got %d, want 400", resp.StatusCode)
	}
}

func TestAPI_GenerateRoundTrip(t *testing.T) {
	model := &stubLLM{response: validDefinitionJSON}
	svc, srv, token := setupAPI(t, model)
	m, _ := svc.CreateMCP(context.Background(), testUserID, "Helper", "Legal", "Goal", "User, AI")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/generate/mcp/"+m.ID, token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var out struct {
		Definition struct {
			SystemPrompt string   `json:"system_prompt"`
			Constraints  []string `json:"constraints"`
		} `json:"definition_json"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Definition.SystemPrompt == "" || len(out.Definition.Constraints) != 2 {
		t.Fatalf("response: %+v", out)
	}
}
