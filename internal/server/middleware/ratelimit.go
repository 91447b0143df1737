package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerSecond is the token refill rate.
	RequestsPerSecond float64
	// Burst is the bucket size.
	Burst int
	// PerIP keeps one bucket per client address instead of one shared bucket.
	PerIP bool
}

// RateLimit creates a token bucket middleware. Rejected requests get 429
// with a Retry-After hint.
func RateLimit(config RateLimitConfig) Middleware {
	if !config.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	limiters := newLimiterSet(config.RequestsPerSecond, config.Burst)
	retryAfter := "1"
	if config.RequestsPerSecond > 0 && config.RequestsPerSecond < 1 {
		retryAfter = strconv.Itoa(int(1/config.RequestsPerSecond + 0.5))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if config.PerIP {
				key = clientIP(r)
			}
			if !limiters.get(key).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *limiterSet) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// clientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
