// Package shield provides reusable HTTP security middleware for mcpstudio:
// security headers, body limits, request IDs, and SQLite-backed rate
// limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(db) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// DefaultAPIStack returns the standard middleware stack for the mcpstudio
// API surface: security headers, body cap, request IDs, then rate limiting.
// Multipart uploads are exempt from the JSON body cap (they carry documents).
func DefaultAPIStack(db *sql.DB) []func(http.Handler) http.Handler {
	return APIStack(NewRateLimiter(db))
}

// APIStack is DefaultAPIStack with a caller-owned rate limiter, for
// callers that run the limiter's config reloader themselves.
func APIStack(rl *RateLimiter) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(1 << 20),
		RequestID,
		rl.Middleware,
	}
}
