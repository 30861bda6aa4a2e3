package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRealIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"remote addr host port", "192.168.1.40:52811", "", "192.168.1.40"},
		{"remote addr bare", "192.168.1.40", "", "192.168.1.40"},
		{"forwarded single hop", "127.0.0.1:9000", "192.168.1.7", "192.168.1.7"},
		{"forwarded chain uses first hop", "127.0.0.1:9000", "192.168.1.7, 10.0.0.2", "192.168.1.7"},
		{"forwarded with spaces", "127.0.0.1:9000", "  192.168.1.7 ,10.0.0.2", "192.168.1.7"},
		{"empty forwarded falls back", "192.168.1.40:52811", "   ", "192.168.1.40"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := RealIP(r); got != tc.want {
				t.Errorf("RealIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimiterAllowUpToLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.7", 5, time.Minute) {
			t.Fatalf("hit %d denied, want allowed", i+1)
		}
	}
	if rl.Allow("192.168.1.7", 5, time.Minute) {
		t.Error("hit 6 allowed, want denied")
	}
	// A different key has its own window.
	if !rl.Allow("192.168.1.8", 5, time.Minute) {
		t.Error("fresh key denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("k", 3, 10*time.Millisecond)
	}
	if rl.Allow("k", 3, 10*time.Millisecond) {
		t.Error("allowed over limit inside window")
	}

	time.Sleep(15 * time.Millisecond)

	if !rl.Allow("k", 3, 10*time.Millisecond) {
		t.Error("denied after window reset")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("stale", 5, 10*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	rl.Allow("live", 5, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.windows["stale"]; ok {
		t.Error("stale window survived cleanup")
	}
	if _, ok := rl.windows["live"]; !ok {
		t.Error("live window removed by cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, RealIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) int {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := send("192.168.1.7:50000"); got != http.StatusOK {
			t.Errorf("hit %d: status = %d, want %d", i+1, got, http.StatusOK)
		}
	}
	if got := send("192.168.1.7:50001"); got != http.StatusTooManyRequests {
		t.Errorf("over limit: status = %d, want %d", got, http.StatusTooManyRequests)
	}
	// Another client is unaffected by the first one's burst.
	if got := send("192.168.1.8:50000"); got != http.StatusOK {
		t.Errorf("other client: status = %d, want %d", got, http.StatusOK)
	}
}
