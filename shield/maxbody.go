package shield

import (
	"net/http"
	"strings"
)

// MaxBody caps request bodies at limit bytes for JSON payloads. Multipart
// requests pass through untouched; document uploads have their own size
// guard in the extraction pipeline.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				ct := r.Header.Get("Content-Type")
				if !strings.HasPrefix(ct, "multipart/form-data") {
					r.Body = http.MaxBytesReader(w, r.Body, limit)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
