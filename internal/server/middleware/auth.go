package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// AuthConfig holds Basic Auth credentials. It is safe to update while
// requests are served.
type AuthConfig struct {
	mu       sync.RWMutex
	Enabled  bool
	User     string
	Password string
}

// Update replaces the credentials.
func (c *AuthConfig) Update(enabled bool, user, password string) {
	c.mu.Lock()
	c.Enabled = enabled
	c.User = user
	c.Password = password
	c.mu.Unlock()
}

func (c *AuthConfig) get() (enabled bool, user, password string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Enabled, c.User, c.Password
}

// Auth creates a Basic Auth middleware. Paths in excludePaths skip
// authentication; a trailing "*" makes the entry a prefix.
func Auth(config *AuthConfig, excludePaths ...string) Middleware {
	exactExcludes := make(map[string]bool)
	var prefixExcludes []string

	for _, path := range excludePaths {
		if prefix, ok := strings.CutSuffix(path, "*"); ok {
			prefixExcludes = append(prefixExcludes, prefix)
		} else {
			exactExcludes[path] = true
		}
	}

	excluded := func(path string) bool {
		if exactExcludes[path] {
			return true
		}
		for _, prefix := range prefixExcludes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enabled, configUser, configPass := config.get()
			if !enabled || excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(configUser)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(configPass)) == 1
			if !userMatch || !passMatch {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="aerotwin"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized")
}
