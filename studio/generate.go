package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/mcpdef"
	"github.com/hazyhaar/mcpstudio/observability"
	"github.com/hazyhaar/mcpstudio/retrieve"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

const generationSystemPrompt = `You are an expert assistant creating structured Model Context Protocols (MCPs) in JSON format. Your sole output MUST be a single, valid JSON object adhering EXACTLY to the following schema. Do NOT include any other text, explanations, or markdown formatting outside of the JSON object. Do NOT include the input parameters (like mcp_name, mcp_goal) in the output JSON itself.

JSON Schema:
` + mcpdef.SchemaPrompt

// Generate runs the full generation pipeline for an owned MCP: retrieve
// scoped context, invoke the model in JSON mode, parse and validate the
// output, and persist it. Validation failure persists nothing; the prior
// definition, or its absence, is untouched.
func (svc *Service) Generate(ctx context.Context, mcpID, ownerID string) (*mcpdef.Definition, error) {
	m, err := svc.GetMCP(ctx, mcpID, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	svc.logger.Info("generating definition", "mcp_id", mcpID, "user_id", ownerID)

	scope := vecindex.Scope{UserID: ownerID, MCPID: mcpID}
	contextQuery := "Context relevant to: " + m.Goal
	retrieved := svc.retriever.Context(ctx, scope, contextQuery)

	human := fmt.Sprintf(
		"Based on the following details, generate the MCP JSON object:\n\n"+
			"**MCP Name:** %s\n"+
			"**Domain:** %s\n"+
			"**Primary Goal:** %s\n"+
			"**Key Roles:** %s\n\n"+
			"**Relevant Context:**\n---\n%s\n---\n\n"+
			"Respond ONLY with the valid JSON object matching the schema provided in the system prompt:",
		m.Name, m.Domain, m.Goal, m.Roles, retrieved)

	resp, err := svc.model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: human},
		},
		Temperature: llm.TempGeneration,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generation model: %v", ErrUpstreamUnavailable, err)
	}

	def, err := mcpdef.Parse([]byte(resp.Content))
	if err != nil {
		svc.logger.Warn("generation output rejected", "mcp_id", mcpID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	if err := svc.store.SetDefinition(ctx, mcpID, ownerID, string(raw)); err != nil {
		return nil, fmt.Errorf("studio: persist definition: %w", err)
	}

	svc.logger.Info("definition generated", "mcp_id", mcpID,
		"duration_ms", time.Since(start).Milliseconds(), "model", resp.Model)
	if svc.metrics != nil {
		svc.metrics.RecordSimple(observability.MetricGenerationDurationMs,
			float64(time.Since(start).Milliseconds()), "ms")
	}
	if svc.audit != nil {
		svc.audit.LogAsync(svc.audit.NewAuditEntry("generate", "definition_generate",
			map[string]string{"mcp_id": mcpID}, nil, nil, time.Since(start)))
	}
	return def, nil
}

// RetrieveContext is the raw retrieval operation behind the context
// endpoint: scoped nearest chunks for an arbitrary query.
func (svc *Service) RetrieveContext(ctx context.Context, ownerID, mcpID, query string, k int) ([]vecindex.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if _, err := svc.GetMCP(ctx, mcpID, ownerID); err != nil {
		return nil, err
	}
	start := time.Now()
	results, err := svc.retriever.Search(ctx, vecindex.Scope{UserID: ownerID, MCPID: mcpID}, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if svc.metrics != nil {
		svc.metrics.RecordSimple(observability.MetricRetrievalDurationMs,
			float64(time.Since(start).Milliseconds()), "ms")
	}
	if results == nil {
		results = []vecindex.Result{}
	}
	return results, nil
}

// RetrieveGlobal searches across every definition the caller owns. The
// transport surfaces route here only on an explicit request; scoped
// retrieval is the default everywhere else.
func (svc *Service) RetrieveGlobal(ctx context.Context, ownerID, query string, k int) ([]vecindex.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	start := time.Now()
	results, err := svc.retriever.GlobalSearch(ctx, ownerID, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if svc.metrics != nil {
		svc.metrics.RecordSimple(observability.MetricRetrievalDurationMs,
			float64(time.Since(start).Milliseconds()), "ms")
	}
	if results == nil {
		results = []vecindex.Result{}
	}
	return results, nil
}

// ContextBlock assembles the retrieval context the generator would see,
// including the placeholder fallback.
func (svc *Service) ContextBlock(ctx context.Context, ownerID, mcpID, query string) string {
	return svc.retriever.Context(ctx, vecindex.Scope{UserID: ownerID, MCPID: mcpID}, query)
}

// Placeholder re-exports the retrieval fallback sentence for callers that
// need to distinguish it.
const Placeholder = retrieve.Placeholder
