package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"
)

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewIPRateLimiter(ctx, 1, 2, time.Minute)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:5000"); code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code := do("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("over budget: status %d, want 429", code)
	}
	if code := do("10.0.0.2:5000"); code != http.StatusNoContent {
		t.Errorf("other client: status %d", code)
	}
}

func TestRateLimitIgnoresForgedForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewIPRateLimiter(ctx, 1, 2, time.Minute)
	h := TrustedRealIP(nil)(RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if i < 2 && w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 18 {
		t.Errorf("%d requests limited, want 18", limited)
	}
	if n := len(rl.visitors); n != 1 {
		t.Errorf("%d buckets tracked, want 1", n)
	}
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proxy := []netip.Prefix{netip.MustParsePrefix("10.1.0.0/16")}
	rl := NewIPRateLimiter(ctx, 1, 1, time.Minute)
	h := TrustedRealIP(proxy)(RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.1.2.3:4000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("198.51.100.1"); code != http.StatusNoContent {
		t.Fatalf("first client: status %d", code)
	}
	if code := do("198.51.100.2"); code != http.StatusNoContent {
		t.Errorf("second client: status %d, want its own bucket", code)
	}
	if code := do("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Errorf("first client again: status %d, want 429", code)
	}
}
