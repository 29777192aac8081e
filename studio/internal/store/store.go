// Package store is the data access layer for studio accounts and MCP
// records. It receives an already-opened *sql.DB and owns the schema for
// the users and mcps tables. All MCP reads and writes are owner-scoped;
// there is no query path that crosses tenants.
package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Store wraps the studio database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    display_name  TEXT NOT NULL DEFAULT '',
    avatar_url    TEXT NOT NULL DEFAULT '',
    auth_provider TEXT NOT NULL DEFAULT 'local',
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mcps (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL REFERENCES users(id),
    name            TEXT NOT NULL,
    domain          TEXT NOT NULL DEFAULT '',
    goal            TEXT NOT NULL DEFAULT '',
    roles           TEXT NOT NULL DEFAULT '',
    definition_json TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mcps_owner ON mcps(owner_id, created_at DESC);
`

// Init applies the schema.
func Init(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store schema: %w", err)
		}
	}
	return nil
}
