// Package middleware holds the HTTP middleware shared by the REST API and
// the SSE transport: defensive response headers and per-caller rate limiting.
package middleware

import (
	"net/http"
	"sync"
	"time"
)

// SecurityHeaders adds defensive response headers to every route,
// including the docs and health endpoints.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter is a per-caller token bucket. Callers are keyed by API key
// prefix when one is present, otherwise by remote address.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      int           // tokens added per interval
	interval  time.Duration // refill interval
	maxTokens int           // burst size
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per interval
// with bursts up to maxTokens.
func NewRateLimiter(rate int, interval time.Duration, maxTokens int) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate,
		interval:  interval,
		maxTokens: maxTokens,
	}
}

// Allow reports whether a request under the given key may proceed,
// consuming a token if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: rl.maxTokens - 1, lastRefill: now}
		return true
	}

	if refill := int(now.Sub(b.lastRefill)/rl.interval) * rl.rate; refill > 0 {
		b.tokens = min(b.tokens+refill, rl.maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if apiKey := r.Header.Get("X-Redmine-API-Key"); apiKey != "" {
			// Key on a short prefix so full credentials never sit in memory.
			if len(apiKey) > 8 {
				apiKey = apiKey[:8]
			}
			key = apiKey
		}

		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error": "Rate limit exceeded. Please slow down."}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops buckets idle for longer than maxAge. Run it periodically
// or the key map grows without bound.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > maxAge {
			delete(rl.buckets, key)
		}
	}
}
