package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestRateLimiter_Refill tests the token bucket against a fake clock.
func TestRateLimiter_Refill(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, rate: 2, interval: time.Second}
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request within the interval should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Error("bucket should refill after one interval")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("refill must not exceed the rate")
	}

	now = now.Add(10 * time.Minute)
	rl.sweep(5 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Errorf("sweep left %d visitors", len(rl.visitors))
	}
}

// TestRateLimit_IgnoresPort tests that clients are keyed by host, not host:port.
func TestRateLimit_IgnoresPort(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, rate: 1, interval: time.Hour, now: time.Now}
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i, port := range []string{"1111", "2222"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.7:" + port
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rr.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rr.Code, want)
		}
	}
}

// TestSecurityHeaders tests the OWASP header set.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

// TestCSRF_RejectsMissingToken tests that unsafe requests need a token.
func TestCSRF_RejectsMissingToken(t *testing.T) {
	key := make([]byte, 32)
	reached := false
	h := CSRF(key, CSRFOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/members/field", nil))
	if rr.Code != http.StatusForbidden || reached {
		t.Errorf("status = %d, reached = %v", rr.Code, reached)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("API failures should be envelopes, Content-Type = %q", ct)
	}
}

// TestCSRF_ExemptsBearer tests that admin-key requests skip the token check.
func TestCSRF_ExemptsBearer(t *testing.T) {
	key := make([]byte, 32)
	reached := false
	h := CSRF(key, CSRFOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest("POST", "/api/members/field", nil)
	req = req.WithContext(context.WithValue(req.Context(), principalContextKey, Principal{Actor: APIActor, Bearer: true}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !reached {
		t.Errorf("bearer request was blocked with status %d", rr.Code)
	}
}

// TestCSRF_AllowsSafeMethods tests that GET requests pass without a token.
func TestCSRF_AllowsSafeMethods(t *testing.T) {
	key := make([]byte, 32)
	reached := false
	h := CSRF(key, CSRFOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/admin/members", nil))
	if !reached {
		t.Error("GET should not need a CSRF token")
	}
}
