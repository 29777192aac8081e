package shield

import (
	"database/sql"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// rule is a per-endpoint-prefix rate limit loaded from the rate_limits table.
type rule struct {
	prefix   string
	limit    int
	windowMs int64
}

type bucket struct {
	mu     sync.Mutex
	count  int
	window int64
}

// RateLimiter enforces per-IP, per-endpoint-prefix request limits. Rules
// live in SQLite so operators can adjust them without a restart; buckets
// live in memory and reset each window.
type RateLimiter struct {
	db      *sql.DB
	mu      sync.RWMutex
	rules   []rule
	buckets sync.Map // "ip|prefix" -> *bucket
}

func NewRateLimiter(db *sql.DB) *RateLimiter {
	rl := &RateLimiter{db: db}
	rl.reload()
	return rl
}

// StartReloader refreshes the rule set every interval and evicts stale
// buckets, until done is closed.
func (rl *RateLimiter) StartReloader(done <-chan struct{}, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				rl.reload()
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) reload() {
	rows, err := rl.db.Query(`SELECT endpoint_prefix, max_requests, window_ms FROM rate_limits WHERE enabled = 1`)
	if err != nil {
		slog.Warn("rate limiter reload failed", "error", err)
		return
	}
	defer rows.Close()

	var rules []rule
	for rows.Next() {
		var ru rule
		if err := rows.Scan(&ru.prefix, &ru.limit, &ru.windowMs); err != nil {
			continue
		}
		rules = append(rules, ru)
	}
	rl.mu.Lock()
	rl.rules = rules
	rl.mu.Unlock()
}

func (rl *RateLimiter) gc() {
	now := time.Now().UnixMilli()
	rl.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		stale := now-b.window > 10*60*1000
		b.mu.Unlock()
		if stale {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// allow reports whether ip may hit endpoint now. Unmatched endpoints are
// always allowed.
func (rl *RateLimiter) allow(ip, endpoint string) bool {
	rl.mu.RLock()
	rules := rl.rules
	rl.mu.RUnlock()

	for _, ru := range rules {
		if !strings.HasPrefix(endpoint, ru.prefix) {
			continue
		}
		key := ip + "|" + ru.prefix
		v, _ := rl.buckets.LoadOrStore(key, &bucket{})
		b := v.(*bucket)

		now := time.Now().UnixMilli()
		b.mu.Lock()
		if now-b.window >= ru.windowMs {
			b.window = now
			b.count = 0
		}
		b.count++
		over := b.count > ru.limit
		b.mu.Unlock()
		if over {
			return false
		}
	}
	return true
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip, r.URL.Path) {
			GetLogger(r.Context()).Warn("rate limited", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
