// Package ratelimit implements a per-client fixed window rate limiter.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Limiter tracks request counts per client key over a fixed window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit  int
	window time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewLimiter allows limit requests per key per window duration. A background
// goroutine evicts stale windows until Stop is called.
func NewLimiter(limit int, windowDur time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  windowDur,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request for key fits in the current window.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{count: 1, start: now}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Stop terminates the cleanup goroutine. Safe to call once.
func (l *Limiter) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.window {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the limit with 429. keyFn derives the
// client key from the request, typically the client IP.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r)) {
				w.Header().Set("Retry-After", l.window.String())
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
