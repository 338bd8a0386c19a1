package judge

import (
	"sync"
	"time"
)

// RateLimiter is an in-memory per-user token bucket for judge invocations
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[uint]*bucket
	rate    float64
	burst   float64
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows ratePerMinute executions per user with a small burst
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &RateLimiter{
		buckets: make(map[uint]*bucket),
		rate:    float64(ratePerMinute) / 60.0,
		burst:   float64(ratePerMinute),
	}
}

// Allow reports whether the user may run another judge invocation now
func (l *RateLimiter) Allow(userID uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[userID]
	if !exists {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[userID] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}
