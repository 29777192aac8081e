// Package studio is the MCP definition studio orchestrator. It owns the
// account and project records, the document ingestion pipeline, scoped
// retrieval, and the model-facing operations (generation, assistance,
// test runs).
package studio

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazyhaar/mcpstudio/docpipe"
	"github.com/hazyhaar/mcpstudio/embedding"
	"github.com/hazyhaar/mcpstudio/horosafe"
	"github.com/hazyhaar/mcpstudio/idgen"
	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/mcpdef"
	"github.com/hazyhaar/mcpstudio/observability"
	"github.com/hazyhaar/mcpstudio/retrieve"
	"github.com/hazyhaar/mcpstudio/studio/internal/store"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

// Service is the main studio orchestrator.
type Service struct {
	store     *store.Store
	docs      *docpipe.Pipeline
	retriever *retrieve.Retriever
	emb       embedding.Embedder
	idx       vecindex.Index
	model     llm.Client
	logger    *slog.Logger
	config    *Config
	newID     idgen.Generator

	urlValidator func(string) error
	fetchClient  *http.Client
	metrics      *observability.MetricsManager
	audit        *observability.AuditLogger
}

// New creates a studio Service and applies the store schema.
func New(db *sql.DB, emb embedding.Embedder, idx vecindex.Index, model llm.Client, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("studio: DB is required")
	}
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.Init(db); err != nil {
		return nil, err
	}

	svc := &Service{
		store:        store.NewStore(db),
		docs:         docpipe.New(docpipe.Config{MaxFileSize: cfg.MaxUploadBytes, Logger: logger}),
		emb:          emb,
		idx:          idx,
		model:        model,
		logger:       logger,
		config:       cfg,
		newID:        idgen.New,
		urlValidator: horosafe.ValidateURL,
		fetchClient:  &http.Client{Timeout: cfg.FetchTimeout},
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.retriever = retrieve.New(emb, idx,
		retrieve.WithK(cfg.RetrieveK), retrieve.WithLogger(logger))
	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithIDGenerator overrides record ID generation. Use in tests for
// deterministic IDs.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) { svc.newID = gen }
}

// WithURLValidator overrides URL validation (default horosafe.ValidateURL).
// Use in tests with httptest servers on loopback addresses.
func WithURLValidator(fn func(string) error) ServiceOption {
	return func(svc *Service) { svc.urlValidator = fn }
}

// WithMetrics sets the metrics sink for ingestion and generation timings.
func WithMetrics(mm *observability.MetricsManager) ServiceOption {
	return func(svc *Service) { svc.metrics = mm }
}

// WithAudit sets the audit logger for data-modifying operations.
func WithAudit(a *observability.AuditLogger) ServiceOption {
	return func(svc *Service) { svc.audit = a }
}

// Store exposes the account store for the auth endpoints at the
// composition root.
func (svc *Service) Store() *store.Store { return svc.store }

// promptNameRunes is how much of an initiating prompt becomes the project
// name.
const promptNameRunes = 30

// InitiateFromPrompt creates an MCP record from a free-text prompt. The
// name is the prompt's head, the goal is the prompt verbatim, and domain
// and roles get generic defaults the user refines later.
func (svc *Service) InitiateFromPrompt(ctx context.Context, ownerID, prompt string) (*store.MCP, error) {
	prompt = strings.TrimSpace(prompt)
	if ownerID == "" || prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}

	name := prompt
	if runes := []rune(prompt); len(runes) > promptNameRunes {
		name = strings.TrimSpace(string(runes[:promptNameRunes])) + "..."
	}
	if name == "" {
		name = "Untitled MCP"
	}

	m := &store.MCP{
		ID:      svc.newID(),
		OwnerID: ownerID,
		Name:    name,
		Domain:  "General",
		Goal:    prompt,
		Roles:   "User, AI",
	}
	if err := svc.store.InsertMCP(ctx, m); err != nil {
		return nil, fmt.Errorf("studio: create mcp: %w", err)
	}
	svc.logger.Info("mcp initiated from prompt", "mcp_id", m.ID, "user_id", ownerID)
	return m, nil
}

// CreateMCP creates an MCP record from explicit fields.
func (svc *Service) CreateMCP(ctx context.Context, ownerID, name, domain, goal, roles string) (*store.MCP, error) {
	if ownerID == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	m := &store.MCP{
		ID:      svc.newID(),
		OwnerID: ownerID,
		Name:    strings.TrimSpace(name),
		Domain:  domain,
		Goal:    goal,
		Roles:   roles,
	}
	if err := svc.store.InsertMCP(ctx, m); err != nil {
		return nil, fmt.Errorf("studio: create mcp: %w", err)
	}
	return m, nil
}

// GetMCP fetches one owned MCP.
func (svc *Service) GetMCP(ctx context.Context, mcpID, ownerID string) (*store.MCP, error) {
	m, err := svc.store.GetMCP(ctx, mcpID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMCPs returns the caller's MCPs, newest first.
func (svc *Service) ListMCPs(ctx context.Context, ownerID string) ([]*store.MCP, error) {
	return svc.store.ListMCPs(ctx, ownerID)
}

// UpdateMCP applies a partial update to an owned MCP. A definition passed
// through here must parse against the schema; hand-edited definitions get
// the same validation as generated ones.
func (svc *Service) UpdateMCP(ctx context.Context, mcpID, ownerID string, upd *store.MCPUpdate) (*store.MCP, error) {
	if upd.DefinitionJSON != nil && *upd.DefinitionJSON != "" {
		if _, err := mcpdef.Parse([]byte(*upd.DefinitionJSON)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
	}
	m, err := svc.store.UpdateMCP(ctx, mcpID, ownerID, upd)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMCP removes an owned MCP record and its indexed chunks. A failure
// to clear the index is logged, not fatal: the record is gone and the
// orphaned chunks are unreachable through any scoped query.
func (svc *Service) DeleteMCP(ctx context.Context, mcpID, ownerID string) error {
	err := svc.store.DeleteMCP(ctx, mcpID, ownerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	scope := vecindex.Scope{UserID: ownerID, MCPID: mcpID}
	if n, err := svc.idx.DeleteScope(ctx, scope); err != nil {
		svc.logger.Warn("index cleanup failed after mcp delete",
			"mcp_id", mcpID, "error", err)
	} else if n > 0 {
		svc.logger.Info("mcp deleted", "mcp_id", mcpID, "chunks_removed", n)
	}
	return nil
}

// Export renders an owned MCP's definition in the given format
// ("markdown", "json" or "yaml") and returns the download filename and
// content. Markdown tolerates a missing definition with an explanatory
// document; JSON and YAML return ErrNotGenerated.
func (svc *Service) Export(ctx context.Context, mcpID, ownerID, format string) (filename string, content []byte, err error) {
	m, err := svc.GetMCP(ctx, mcpID, ownerID)
	if err != nil {
		return "", nil, err
	}
	meta := mcpdef.Meta{ID: m.ID, Name: m.Name, Domain: m.Domain, Goal: m.Goal}

	if m.DefinitionJSON == "" {
		if format == "markdown" {
			body := fmt.Sprintf("# MCP: %s\n\n**Error:** No structured definition found for this MCP.", m.Name)
			return fmt.Sprintf("MCP_%s_no_definition.md", m.ID), []byte(body), nil
		}
		return "", nil, ErrNotGenerated
	}

	def, err := mcpdef.Parse([]byte(m.DefinitionJSON))
	if err != nil {
		// A stored definition always parses; anything else is corruption.
		return "", nil, fmt.Errorf("studio: stored definition unreadable: %w", err)
	}

	switch format {
	case "markdown":
		return mcpdef.ExportFilename(meta, "md"), []byte(mcpdef.ExportMarkdown(meta, def)), nil
	case "json":
		out, err := mcpdef.ExportJSON(def)
		if err != nil {
			return "", nil, err
		}
		return mcpdef.ExportFilename(meta, "json"), out, nil
	case "yaml":
		out, err := mcpdef.ExportYAML(def)
		if err != nil {
			return "", nil, err
		}
		return mcpdef.ExportFilename(meta, "yaml"), out, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, format)
	}
}
