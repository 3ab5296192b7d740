package internal

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("fourth request in the window should be blocked")
	}
	// other keys are unaffected
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("a different caller must not be throttled")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("first request should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("second immediate request should be blocked")
	}
	time.Sleep(15 * time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("request after the window expired should be allowed")
	}
}
