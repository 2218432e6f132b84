package service_test

import (
	"testing"
	"time"

	"github.com/msomdec/tempo/internal/service"
)

func newBucket(t *testing.T, rate, capacity float64) *service.TokenBucket {
	t.Helper()
	tb := service.NewTokenBucket(rate, capacity)
	t.Cleanup(tb.Stop)
	return tb
}

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	tb := newBucket(t, 1, 3)

	for i := 0; i < 3; i++ {
		if !tb.Allow("a@example.com") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if tb.Allow("a@example.com") {
		t.Fatal("4th request should be denied")
	}
}

func TestTokenBucket_DifferentKeysAreIndependent(t *testing.T) {
	tb := newBucket(t, 1, 1)

	if !tb.Allow("a@example.com") {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow("a@example.com") {
		t.Fatal("second request should be denied")
	}
	if !tb.Allow("b@example.com") {
		t.Fatal("other key should have its own bucket")
	}
}

func TestTokenBucket_ZeroRateNeverRefills(t *testing.T) {
	tb := newBucket(t, 0, 2)

	tb.Allow("k")
	tb.Allow("k")
	if tb.Allow("k") {
		t.Fatal("third request should be denied")
	}
}

func TestTokenBucket_Refills(t *testing.T) {
	tb := newBucket(t, 3.0/600, 3)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.SetBucketClock(tb, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		tb.Allow("k")
	}
	if tb.Allow("k") {
		t.Fatal("expected bucket to be empty")
	}

	now = now.Add(200 * time.Second)
	if !tb.Allow("k") {
		t.Fatal("expected one token after 200s")
	}
	if tb.Allow("k") {
		t.Fatal("expected only one token to have refilled")
	}
}

func TestTokenBucket_PruneDropsIdleKeys(t *testing.T) {
	tb := newBucket(t, 1, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.SetBucketClock(tb, func() time.Time { return now })

	tb.Allow("old")
	now = now.Add(time.Hour)
	tb.Allow("fresh")

	service.PruneBuckets(tb, 10*time.Minute)
	if got := tb.Len(); got != 1 {
		t.Fatalf("expected 1 key after prune, got %d", got)
	}
}
