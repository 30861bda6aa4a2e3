package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP returns the address to key rate limits and logs on. Behind a
// reverse proxy the first hop of X-Forwarded-For identifies the client;
// on a bare LAN deployment RemoteAddr does.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	hits    int
	resetAt time.Time
}

// RateLimiter counts hits per key inside a fixed window. It backs the
// login throttle, so the key space stays small enough for a plain map.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window)}
}

// Allow records a hit for key and reports whether it stays within limit.
// The window starts on the first hit and is not sliding.
func (rl *RateLimiter) Allow(key string, limit int, ttl time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &window{hits: 1, resetAt: now.Add(ttl)}
		return true
	}
	w.hits++
	return w.hits <= limit
}

// Cleanup drops windows that have already reset. Callers run it on a
// ticker so a stream of distinct keys cannot grow the map forever.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit rejects requests over limit per window with 429, keyed by
// keyFunc. The server keys the login route on RealIP so PIN guessing
// from one device does not lock out the rest of the household.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, ttl) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
