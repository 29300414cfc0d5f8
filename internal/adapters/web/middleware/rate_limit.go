package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter throttles flow ingestion per collector using a sliding window of
// request timestamps. Collectors identify themselves with X-Collector-ID;
// anonymous clients fall back to their source address.
type Limiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing limit requests per window per
// collector, pruning idle collectors in the background.
func NewRateLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.prune()
		}
	}()

	return l
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, times := range l.seen {
		live := times[:0]
		for _, t := range times {
			if now.Sub(t) < l.window {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			delete(l.seen, key)
		} else {
			l.seen[key] = live
		}
	}
}

// Allow records one request for the collector and reports whether it fits
// inside the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	live := make([]time.Time, 0, len(l.seen[key])+1)
	for _, t := range l.seen[key] {
		if now.Sub(t) < l.window {
			live = append(live, t)
		}
	}

	if len(live) >= l.limit {
		l.seen[key] = live
		return false
	}

	l.seen[key] = append(live, now)
	return true
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(collectorKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "ingestion rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// collectorKey resolves the throttling identity for one request.
func collectorKey(r *http.Request) string {
	if id := r.Header.Get("X-Collector-ID"); id != "" {
		return id
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
