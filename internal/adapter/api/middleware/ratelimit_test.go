package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(60, 2)
	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login/check", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("10.0.0.1:5000"); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := send("10.0.0.1:5001"); code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", code)
	}
	if code := send("10.0.0.1:5002"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted: expected 429, got %d", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", code)
	}

	// One token per second refills.
	now = now.Add(time.Second)
	if code := send("10.0.0.1:5003"); code != http.StatusOK {
		t.Fatalf("after refill: expected 200, got %d", code)
	}
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	limiter := NewIPRateLimiter(60, 1)
	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")

	limiter.Sweep(time.Minute)

	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Error("expected idle visitor to be swept")
	}
	if _, ok := limiter.visitors["10.0.0.2"]; !ok {
		t.Error("expected recent visitor to be kept")
	}
}
