package service

import (
	"sync"
	"time"
)

// TokenBucket is an in-memory per-key rate limiter. It is safe for concurrent
// use. Buckets idle for longer than the refill window are dropped by a
// background sweep that runs until Stop.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens added per second
	capacity float64
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter allowing bursts of capacity per key,
// refilling at rate tokens per second.
func NewTokenBucket(rate, capacity float64) *TokenBucket {
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go tb.sweep(5 * time.Minute)
	return tb
}

// Allow consumes one token for key and reports whether one was available.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, last: now}
		tb.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(b.tokens+elapsed*tb.rate, tb.capacity)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Stop ends the background sweep and waits for it to exit.
func (tb *TokenBucket) Stop() {
	tb.stopOnce.Do(func() { close(tb.stop) })
	<-tb.done
}

func (tb *TokenBucket) sweep(every time.Duration) {
	defer close(tb.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-tb.stop:
			return
		case <-ticker.C:
			tb.prune(tb.idleWindow())
		}
	}
}

// idleWindow is how long a bucket takes to refill from empty, with a floor of
// ten minutes.
func (tb *TokenBucket) idleWindow() time.Duration {
	window := 10 * time.Minute
	if tb.rate > 0 {
		if refill := time.Duration(tb.capacity / tb.rate * float64(time.Second)); refill > window {
			window = refill
		}
	}
	return window
}

func (tb *TokenBucket) prune(idle time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	cutoff := tb.now().Add(-idle)
	for key, b := range tb.buckets {
		if b.last.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}
