// Package retrieve turns a natural-language query into scoped context for
// generation. It embeds the query, searches the vector index within the
// caller's scope, and assembles the hit texts into a single context block.
package retrieve

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hazyhaar/mcpstudio/embedding"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

// Placeholder is injected into prompts when retrieval yields nothing.
// Generation proceeds on the instructions alone rather than failing.
const Placeholder = "No relevant context found for this specific MCP."

// separator delimits chunks inside an assembled context block.
const separator = "\n\n---\n\n"

// DefaultK is the number of chunks retrieved per query.
const DefaultK = 5

// Retriever performs scoped similarity search.
type Retriever struct {
	emb    embedding.Embedder
	idx    vecindex.Index
	k      int
	logger *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithK overrides the default result count.
func WithK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New creates a Retriever over the given embedder and index.
func New(emb embedding.Embedder, idx vecindex.Index, opts ...Option) *Retriever {
	r := &Retriever{
		emb:    emb,
		idx:    idx,
		k:      DefaultK,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Search returns the k nearest chunks within scope, ordered by ascending
// distance. Errors propagate; use Context when retrieval must not block
// the caller.
func (r *Retriever) Search(ctx context.Context, scope vecindex.Scope, query string, k int) ([]vecindex.Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = r.k
	}
	vec, err := r.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.idx.Search(ctx, scope, vec, k)
}

// GlobalSearch returns the k nearest chunks across every definition the
// caller owns, ordered by ascending distance. It exists for exploratory
// queries and must be asked for by name; Search and Context stay bound
// to one definition.
func (r *Retriever) GlobalSearch(ctx context.Context, userID, query string, k int) ([]vecindex.Result, error) {
	if userID == "" {
		return nil, errors.New("retrieve: global search missing user_id")
	}
	if k <= 0 {
		k = r.k
	}
	vec, err := r.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.idx.SearchTenant(ctx, userID, vec, k)
}

// Context assembles the retrieved chunk texts into one block for prompt
// injection. Retrieval failures and empty corpora both degrade to
// Placeholder: generation quality suffers, but the operation completes.
func (r *Retriever) Context(ctx context.Context, scope vecindex.Scope, query string) string {
	results, err := r.Search(ctx, scope, query, r.k)
	if err != nil {
		r.logger.Warn("retrieval failed, using placeholder",
			"user_id", scope.UserID, "mcp_id", scope.MCPID, "error", err)
		return Placeholder
	}
	if len(results) == 0 {
		return Placeholder
	}

	texts := make([]string, 0, len(results))
	for _, res := range results {
		if t := strings.TrimSpace(res.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return Placeholder
	}
	return strings.Join(texts, separator)
}
