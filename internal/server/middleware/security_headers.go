package middleware

import "net/http"

// SecurityHeaders adds security-related HTTP headers to API responses.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			// predictions depend on the resident model and must not be cached
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
