// Package vecindex stores chunk embeddings and serves scoped similarity
// search. Two backends implement the same Index interface: a local SQLite
// store that scans vectors with precomputed norms, and a remote HTTP store
// for a dedicated vector server.
//
// Every operation is scoped to a tenant and a definition, with one
// exception: SearchTenant spans a tenant's definitions and must be asked
// for by name. Nothing crosses tenants; isolation is enforced in the
// store, not in callers.
package vecindex

import (
	"context"
	"errors"
)

// Scope binds every index operation to one tenant and one definition.
// Both fields are required; Validate rejects partial scopes.
type Scope struct {
	UserID string `json:"user_id"`
	MCPID  string `json:"mcp_id"`
}

// Validate reports whether the scope is fully specified.
func (s Scope) Validate() error {
	if s.UserID == "" {
		return errors.New("vecindex: scope missing user_id")
	}
	if s.MCPID == "" {
		return errors.New("vecindex: scope missing mcp_id")
	}
	return nil
}

// Entry is one chunk to index.
type Entry struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Source string    `json:"source"` // originating document or URL
	Vector []float32 `json:"vector"`
}

// Result is one search hit. Distance is 1 minus cosine similarity: lower
// means more similar, and results are ordered ascending on it. MCPID
// names the definition the hit belongs to; tenant-wide searches need it
// to tell hits apart.
type Result struct {
	ID       string  `json:"id"`
	MCPID    string  `json:"mcp_id,omitempty"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Distance float64 `json:"distance"`
}

// Index is the vector store contract shared by the local and remote
// backends.
type Index interface {
	// Add writes entries one at a time and returns how many were stored.
	// A failing entry is skipped, not fatal; the count reports partial
	// success.
	Add(ctx context.Context, scope Scope, entries []Entry) (int, error)

	// Search returns the k nearest entries within scope, ordered by
	// ascending distance. Fewer than k results is not an error.
	Search(ctx context.Context, scope Scope, vector []float32, k int) ([]Result, error)

	// SearchTenant returns the k nearest entries across every definition
	// owned by userID. This is the explicit exploratory path; every other
	// read stays bound to one definition.
	SearchTenant(ctx context.Context, userID string, vector []float32, k int) ([]Result, error)

	// DeleteBySource removes all entries within scope that came from the
	// given source. Returns the number removed.
	DeleteBySource(ctx context.Context, scope Scope, source string) (int, error)

	// DeleteScope removes every entry in the scope. Returns the number
	// removed.
	DeleteScope(ctx context.Context, scope Scope) (int, error)

	// ListSources returns the distinct source identifiers within scope,
	// sorted ascending.
	ListSources(ctx context.Context, scope Scope) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
