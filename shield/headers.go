package shield

import "net/http"

// HeaderConfig describes the security headers applied to every response.
type HeaderConfig struct {
	ContentTypeOptions string
	FrameOptions       string
	ReferrerPolicy     string
	CacheControl       string
}

// DefaultHeaders returns the header set for a JSON API: no sniffing, no
// framing, no referrer leakage, no shared caching of authenticated data.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		ContentTypeOptions: "nosniff",
		FrameOptions:       "DENY",
		ReferrerPolicy:     "no-referrer",
		CacheControl:       "no-store",
	}
}

// SecurityHeaders sets the configured headers on every response.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.ContentTypeOptions != "" {
				h.Set("X-Content-Type-Options", cfg.ContentTypeOptions)
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.CacheControl != "" {
				h.Set("Cache-Control", cfg.CacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}
