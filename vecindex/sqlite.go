package vecindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/mcpstudio/embedding"
)

// Schema holds the DDL for the local vector store. Vectors are stored as
// little-endian float32 blobs with precomputed L2 norms so the scan only
// pays for the dot product.
const Schema = `
CREATE TABLE IF NOT EXISTS vec_entries (
    entry_id   TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    mcp_id     TEXT NOT NULL,
    source     TEXT NOT NULL,
    content    TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    dimension  INTEGER NOT NULL,
    norm       REAL NOT NULL,
    model_name TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_vec_entries_scope
    ON vec_entries(user_id, mcp_id);
CREATE INDEX IF NOT EXISTS idx_vec_entries_source
    ON vec_entries(user_id, mcp_id, source);
`

// InitSchema applies the vector store DDL.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// SQLiteIndex is the embedded backend. Search is an exact scan over the
// scope's rows; with per-definition corpora in the low thousands of chunks
// this stays well under a millisecond.
type SQLiteIndex struct {
	db     *sql.DB
	model  string
	logger *slog.Logger
}

// NewSQLite creates a local index on the given database. The schema must
// already be applied (InitSchema).
func NewSQLite(db *sql.DB, model string, logger *slog.Logger) *SQLiteIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteIndex{db: db, model: model, logger: logger}
}

func (s *SQLiteIndex) Add(ctx context.Context, scope Scope, entries []Entry) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}

	added := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if e.ID == "" || len(e.Vector) == 0 {
			s.logger.Warn("skipping invalid entry", "entry_id", e.ID, "source", e.Source)
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO vec_entries
				(entry_id, user_id, mcp_id, source, content, embedding, dimension, norm, model_name)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			e.ID, scope.UserID, scope.MCPID, e.Source, e.Text,
			embedding.SerializeVector(e.Vector), len(e.Vector),
			embedding.CalculateNorm(e.Vector), s.model)
		if err != nil {
			s.logger.Warn("entry insert failed", "entry_id", e.ID, "error", err)
			continue
		}
		added++
	}
	return added, nil
}

func (s *SQLiteIndex) Search(ctx context.Context, scope Scope, vector []float32, k int) ([]Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.nearest(ctx, vector, k,
		`WHERE user_id = ? AND mcp_id = ?`, scope.UserID, scope.MCPID)
}

// SearchTenant scans every definition owned by userID. Results carry the
// definition ID so callers can tell the hits apart.
func (s *SQLiteIndex) SearchTenant(ctx context.Context, userID string, vector []float32, k int) ([]Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("vecindex: tenant search missing user_id")
	}
	return s.nearest(ctx, vector, k, `WHERE user_id = ?`, userID)
}

func (s *SQLiteIndex) nearest(ctx context.Context, vector []float32, k int, where string, args ...any) ([]Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vecindex: empty query vector")
	}
	if k <= 0 {
		k = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, mcp_id, source, content, embedding, norm
		FROM vec_entries `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("vecindex: scan query: %w", err)
	}
	defer rows.Close()

	queryNorm := embedding.CalculateNorm(vector)
	var results []Result
	for rows.Next() {
		var id, mcpID, source, content string
		var blob []byte
		var norm float64
		if err := rows.Scan(&id, &mcpID, &source, &content, &blob, &norm); err != nil {
			return nil, fmt.Errorf("vecindex: scan row: %w", err)
		}

		vec := embedding.DeserializeVector(blob)
		if len(vec) != len(vector) {
			// Dimension drift from a model change; skip rather than fail.
			continue
		}
		sim := embedding.CosineSimilarityNormed(vector, vec, queryNorm, norm)
		results = append(results, Result{
			ID:       id,
			MCPID:    mcpID,
			Text:     content,
			Source:   source,
			Distance: 1 - sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *SQLiteIndex) DeleteBySource(ctx context.Context, scope Scope, source string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM vec_entries WHERE user_id = ? AND mcp_id = ? AND source = ?`,
		scope.UserID, scope.MCPID, source)
	if err != nil {
		return 0, fmt.Errorf("vecindex: delete by source: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteIndex) DeleteScope(ctx context.Context, scope Scope) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM vec_entries WHERE user_id = ? AND mcp_id = ?`,
		scope.UserID, scope.MCPID)
	if err != nil {
		return 0, fmt.Errorf("vecindex: delete scope: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteIndex) ListSources(ctx context.Context, scope Scope) ([]string, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT source FROM vec_entries
		WHERE user_id = ? AND mcp_id = ? ORDER BY source`,
		scope.UserID, scope.MCPID)
	if err != nil {
		return nil, fmt.Errorf("vecindex: list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (s *SQLiteIndex) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
