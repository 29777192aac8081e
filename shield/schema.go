package shield

import "database/sql"

// Schema holds the rate limit rule table. Seed rows protect the expensive
// endpoints (generation, AI assistance, uploads) out of the box.
const Schema = `
CREATE TABLE IF NOT EXISTS rate_limits (
    endpoint_prefix TEXT PRIMARY KEY,
    max_requests    INTEGER NOT NULL,
    window_ms       INTEGER NOT NULL,
    enabled         INTEGER NOT NULL DEFAULT 1
);

INSERT OR IGNORE INTO rate_limits (endpoint_prefix, max_requests, window_ms) VALUES
    ('/api/generate/', 10, 60000),
    ('/api/ai/', 30, 60000),
    ('/api/ingest/', 30, 60000),
    ('/api/auth/login', 10, 60000);
`

// Init creates the rate limit tables if missing.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
