package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, 1*time.Second)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("collector-a") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow("collector-a") {
		t.Error("4th request should be blocked")
	}

	// a different collector has its own budget
	if !limiter.Allow("collector-b") {
		t.Error("Request from different collector should be allowed")
	}
}

func TestLimiter_WindowExpiration(t *testing.T) {
	limiter := NewRateLimiter(2, 200*time.Millisecond)

	limiter.Allow("collector-a")
	limiter.Allow("collector-a")

	if limiter.Allow("collector-a") {
		t.Error("Request should be blocked before window expires")
	}

	time.Sleep(250 * time.Millisecond)

	if !limiter.Allow("collector-a") {
		t.Error("Request should be allowed after window expires")
	}
}

func TestLimiter_Prune(t *testing.T) {
	limiter := NewRateLimiter(5, 100*time.Millisecond)

	limiter.Allow("collector-a")
	limiter.Allow("collector-b")
	limiter.Allow("collector-c")

	limiter.mu.Lock()
	initialCount := len(limiter.seen)
	limiter.mu.Unlock()

	if initialCount != 3 {
		t.Errorf("Expected 3 collectors tracked, got %d", initialCount)
	}

	time.Sleep(150 * time.Millisecond)
	limiter.prune()

	limiter.mu.Lock()
	afterPrune := len(limiter.seen)
	limiter.mu.Unlock()

	if afterPrune != 0 {
		t.Errorf("Expected 0 collectors after prune, got %d", afterPrune)
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(10, 1*time.Second)
	done := make(chan bool)

	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 3; j++ {
				limiter.Allow("collector-a")
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		<-done
	}

	// 15 attempts against a limit of 10, the budget must be spent
	if limiter.Allow("collector-a") {
		t.Error("Should have exceeded limit with concurrent requests")
	}
}

func TestLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(1, 1*time.Second)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil)
	req.Header.Set("X-Collector-ID", "gateway-1")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("First request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be throttled, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Throttled response should carry Retry-After")
	}

	// another collector is unaffected
	other := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil)
	other.Header.Set("X-Collector-ID", "gateway-2")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("Different collector should pass, got %d", w.Code)
	}
}
