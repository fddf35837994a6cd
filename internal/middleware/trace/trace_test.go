package trace

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fondi/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	handler := Middleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/funds", nil))

	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id %q missing req_ prefix", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, want %q", got, seen)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	handler := Middleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req_upstream")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req_upstream" {
		t.Errorf("X-Request-ID = %q, want req_upstream", got)
	}
}

func TestGetRequestIDEmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("request id = %q, want empty", got)
	}
}
