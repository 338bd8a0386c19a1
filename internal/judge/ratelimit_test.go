package judge

import "testing"

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(2)

	if !limiter.Allow(1) {
		t.Error("expected first call to be allowed")
	}
	if !limiter.Allow(1) {
		t.Error("expected second call to be allowed")
	}
	if limiter.Allow(1) {
		t.Error("expected third call to be rejected")
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	limiter := NewRateLimiter(1)

	if !limiter.Allow(1) {
		t.Error("expected user 1 to be allowed")
	}
	if !limiter.Allow(2) {
		t.Error("expected user 2 to have an independent budget")
	}
	if limiter.Allow(1) {
		t.Error("expected user 1 to be exhausted")
	}
}

func TestRateLimiterDefault(t *testing.T) {
	limiter := NewRateLimiter(0)

	// Default budget is 30 per minute
	for i := 0; i < 30; i++ {
		if !limiter.Allow(5) {
			t.Fatalf("expected call %d to be allowed", i)
		}
	}
	if limiter.Allow(5) {
		t.Error("expected call past the default burst to be rejected")
	}
}
