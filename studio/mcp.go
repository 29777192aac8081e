package studio

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mcpstudio/kit"
)

// RegisterMCP registers the studio operations as MCP tools. The studio
// builds MCP definitions, so its own surface is exposed the same way.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerInitiate(srv)
	svc.registerListMCPs(srv)
	svc.registerGetMCP(srv)
	svc.registerIngestURL(srv)
	svc.registerRetrieve(srv)
	svc.registerGenerate(srv)
	svc.registerExport(srv)
	svc.registerTestRun(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}

func (svc *Service) registerInitiate(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		Prompt string `json:"prompt"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_initiate",
		Description: "Create a new MCP project from a free-text prompt",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string", "description": "Owner user ID"},
			"prompt":  map[string]any{"type": "string", "description": "Free-text description of the MCP to build"},
		}, []string{"user_id", "prompt"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.InitiateFromPrompt(ctx, p.UserID, p.Prompt)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerListMCPs(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_list_mcps",
		Description: "List all MCP projects owned by a user",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string", "description": "Owner user ID"},
		}, []string{"user_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ListMCPs(ctx, p.UserID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerGetMCP(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		MCPID  string `json:"mcp_id"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_get_mcp",
		Description: "Fetch one MCP project with its stored definition",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string"},
			"mcp_id":  map[string]any{"type": "string"},
		}, []string{"user_id", "mcp_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.GetMCP(ctx, p.MCPID, p.UserID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerIngestURL(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		MCPID  string `json:"mcp_id"`
		URL    string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_ingest_url",
		Description: "Fetch a URL and index its content as context for an MCP project",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string"},
			"mcp_id":  map[string]any{"type": "string"},
			"url":     map[string]any{"type": "string", "description": "Public URL to ingest"},
		}, []string{"user_id", "mcp_id", "url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.IngestURL(ctx, p.UserID, p.MCPID, p.URL)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerRetrieve(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		MCPID  string `json:"mcp_id"`
		Query  string `json:"query"`
		K      int    `json:"k"`
		Global bool   `json:"global"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_retrieve_context",
		Description: "Search the indexed context of an MCP project",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string"},
			"mcp_id":  map[string]any{"type": "string", "description": "Project to search; required unless global is set"},
			"query":   map[string]any{"type": "string"},
			"k":       map[string]any{"type": "integer", "description": "Number of chunks, default 5"},
			"global":  map[string]any{"type": "boolean", "description": "Search across all of the user's projects"},
		}, []string{"user_id", "query"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if p.Global {
			return svc.RetrieveGlobal(ctx, p.UserID, p.Query, p.K)
		}
		return svc.RetrieveContext(ctx, p.UserID, p.MCPID, p.Query, p.K)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerGenerate(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		MCPID  string `json:"mcp_id"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_generate_definition",
		Description: "Generate and persist the structured definition for an MCP project",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string"},
			"mcp_id":  map[string]any{"type": "string"},
		}, []string{"user_id", "mcp_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.Generate(ctx, p.MCPID, p.UserID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerExport(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
		MCPID  string `json:"mcp_id"`
		Format string `json:"format"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_export",
		Description: "Export an MCP definition as markdown, json or yaml",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string"},
			"mcp_id":  map[string]any{"type": "string"},
			"format":  map[string]any{"type": "string", "description": "markdown, json or yaml"},
		}, []string{"user_id", "mcp_id", "format"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		filename, content, err := svc.Export(ctx, p.MCPID, p.UserID, p.Format)
		if err != nil {
			return nil, err
		}
		return map[string]string{"filename": filename, "content": string(content)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerTestRun(srv *mcp.Server) {
	type req struct {
		UserID    string `json:"user_id"`
		MCPID     string `json:"mcp_id"`
		UserInput string `json:"user_input"`
	}

	tool := &mcp.Tool{
		Name:        "mcpstudio_test_run",
		Description: "Run a test input against an MCP's stored system prompt",
		InputSchema: inputSchema(map[string]any{
			"user_id":    map[string]any{"type": "string"},
			"mcp_id":     map[string]any{"type": "string"},
			"user_input": map[string]any{"type": "string"},
		}, []string{"user_id", "mcp_id", "user_input"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.TestRun(ctx, p.MCPID, p.UserID, p.UserInput)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}
