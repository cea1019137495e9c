package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_IncrCountsWithinWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := s.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("ttl out of range: %v", ttl)
		}
	}

	// Independent keys get independent counters.
	count, _, err := s.Incr(ctx, "other", time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("other key: count=%d err=%v", count, err)
	}
}

func TestMemoryStore_WindowExpiryResetsCounter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// A very short window expires between calls.
	if _, _, err := s.Incr(ctx, "k", time.Millisecond); err != nil {
		t.Fatalf("incr: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	count, _, err := s.Incr(ctx, "k", time.Millisecond)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window, got count=%d", count)
	}
}

func TestLimiter_Check_AdmitsUntilLimit(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	tier := Tier{Name: "read", Limit: 3, Window: time.Minute, FailOpen: true}
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		res, err := limiter.Check(ctx, "ip:1.2.3.4", tier)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
		if want := tier.Limit - i - 1; res.Remaining != want {
			t.Fatalf("remaining = %d, want %d", res.Remaining, want)
		}
		if res.Limit != tier.Limit {
			t.Fatalf("limit = %d, want %d", res.Limit, tier.Limit)
		}
		if res.ResetAt.IsZero() {
			t.Fatalf("ResetAt must be set on success")
		}
	}

	res, err := limiter.Check(ctx, "ip:1.2.3.4", tier)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over the limit must be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d on reject, want 0", res.Remaining)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter out of range: %v", res.RetryAfter)
	}

	// A different identity in the same tier still has a fresh budget.
	res, err = limiter.Check(ctx, "ip:5.6.7.8", tier)
	if err != nil || !res.Allowed {
		t.Fatalf("other identity should be admitted: allowed=%v err=%v", res.Allowed, err)
	}
}

func TestLimiter_Check_TiersDoNotShareCounters(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	ctx := context.Background()
	read := Tier{Name: "read", Limit: 1, Window: time.Minute, FailOpen: true}
	create := Tier{Name: "create", Limit: 1, Window: time.Minute, FailOpen: false}

	if res, _ := limiter.Check(ctx, "user:u1", read); !res.Allowed {
		t.Fatalf("first read should pass")
	}
	if res, _ := limiter.Check(ctx, "user:u1", read); res.Allowed {
		t.Fatalf("second read should be rejected")
	}
	// Same identity, different tier namespace.
	if res, _ := limiter.Check(ctx, "user:u1", create); !res.Allowed {
		t.Fatalf("create tier must not see the read counter")
	}
}

func TestMemoryStore_PeekDoesNotConsume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// A missing key reads as zero.
	count, ttl, err := s.Peek(ctx, "k")
	if err != nil || count != 0 || ttl != 0 {
		t.Fatalf("missing key: count=%d ttl=%v err=%v", count, ttl, err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := s.Incr(ctx, "k", time.Minute); err != nil {
			t.Fatalf("incr: %v", err)
		}
	}
	count, ttl, err = s.Peek(ctx, "k")
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl out of range: %v", ttl)
	}

	// Peeking again proves nothing was consumed.
	if count, _, _ := s.Peek(ctx, "k"); count != 2 {
		t.Fatalf("peek must not increment, got %d", count)
	}

	// An expired window reads as zero again.
	if _, _, err := s.Incr(ctx, "short", time.Millisecond); err != nil {
		t.Fatalf("incr: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if count, _, _ := s.Peek(ctx, "short"); count != 0 {
		t.Fatalf("expired window must read zero, got %d", count)
	}
}

func TestLimiter_Status_ReportsWithoutConsuming(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	tier := Tier{Name: "read", Limit: 3, Window: time.Minute, FailOpen: true}
	ctx := context.Background()

	if _, err := limiter.Check(ctx, "ip:1.2.3.4", tier); err != nil {
		t.Fatalf("check: %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := limiter.Status(ctx, "ip:1.2.3.4", tier)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if !res.Allowed || res.Limit != 3 || res.Remaining != 2 {
			t.Fatalf("status = %+v, want allowed with remaining 2", res)
		}
		if res.ResetAt.IsZero() {
			t.Fatalf("ResetAt must be set for a live window")
		}
	}

	// A fresh identity reads the full budget.
	res, err := limiter.Status(ctx, "ip:5.6.7.8", tier)
	if err != nil || res.Remaining != 3 {
		t.Fatalf("fresh identity: %+v err=%v", res, err)
	}
}

// downStore simulates a broken counter backend.
type downStore struct{}

func (downStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("backend down")
}

func (downStore) Peek(context.Context, string) (int64, time.Duration, error) {
	return 0, 0, errors.New("backend down")
}

func TestLimiter_Check_StoreFailurePolicy(t *testing.T) {
	limiter := NewLimiter(downStore{})
	ctx := context.Background()

	res, err := limiter.Check(ctx, "x", Tier{Name: "read", Limit: 5, Window: time.Minute, FailOpen: true})
	if err == nil {
		t.Fatalf("expected the store error to be propagated")
	}
	if !res.Allowed {
		t.Fatalf("fail-open tier must admit on store failure")
	}

	res, err = limiter.Check(ctx, "x", Tier{Name: "create", Limit: 5, Window: time.Minute, FailOpen: false})
	if err == nil {
		t.Fatalf("expected the store error to be propagated")
	}
	if res.Allowed {
		t.Fatalf("fail-closed tier must reject on store failure")
	}
}
