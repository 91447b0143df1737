package middleware

import (
	"fmt"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
// Feature payloads are a few hundred bytes.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBody caps request bodies at limit bytes. A declared Content-Length
// over the limit is answered with 413 before the handler runs; chunked
// bodies fail with *http.MaxBytesError when the handler reads past it.
func MaxBody(limit int64) Middleware {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	tooLarge := fmt.Sprintf("request body exceeds %d bytes", limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.ContentLength > limit:
				WriteError(w, http.StatusRequestEntityTooLarge, tooLarge)
				return
			case r.Body == nil || r.Body == http.NoBody:
			default:
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
