package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if l.Allow("a") {
		t.Fatal("fourth request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("different key should have its own window")
	}
}

func TestWindowResets(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("first request limited")
	}
	if l.Allow("a") {
		t.Fatal("second request should be limited")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatal("request after window should be allowed")
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	handler := l.Middleware(func(r *http.Request) string { return "k" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}
