package service

import "time"

// Test hooks for deterministic clocks.

func SetBucketClock(tb *TokenBucket, now func() time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.now = now
}

func PruneBuckets(tb *TokenBucket, idle time.Duration) {
	tb.prune(idle)
}

func SetAuthClock(s *AuthService, now func() time.Time) {
	s.now = now
	SetBucketClock(s.limiter, now)
}
