// Package ratelimit implements per-identity, per-tier request admission
// control using fixed-window counters. The counter store is injected so the
// limiter can run against an in-process map in a single-node deployment or
// against Redis when counters must be shared across replicas.
//
// The limiter always increments, even for requests that are ultimately
// rejected downstream. That bounds worst-case request amplification at the
// cost of counting a handful of doomed requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Tier is a rate-limit policy bucket with its own ceiling and key namespace.
type Tier struct {
	// Name namespaces counter keys (e.g. "read", "create").
	Name string
	// Limit is the maximum number of requests admitted per window.
	Limit int64
	// Window is the fixed counting window length; counters expire with it.
	Window time.Duration
	// FailOpen decides the policy when the counter store is unavailable:
	// true admits the request (read paths), false rejects it (write paths).
	FailOpen bool
}

// Result is the limiter's decision for a single request.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	// RetryAfter is the remaining window time; zero when Allowed.
	RetryAfter time.Duration
}

// Store is a keyed counter with atomic increment and TTL expiry. Incr must
// set the key's TTL to window on first increment and report the remaining
// TTL on every call. Peek reads the current count and TTL without consuming
// quota; a missing or expired key reads as zero.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Peek(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
}

// Limiter makes admission decisions against a Store.
type Limiter struct {
	store Store
}

// NewLimiter returns a Limiter backed by the given counter store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check increments the counter for (identity, tier) and decides admission.
//
// On store failure the tier's FailOpen policy applies; the returned Result
// then carries no meaningful Remaining/ResetAt and the error is propagated
// so callers can log it.
func (l *Limiter) Check(ctx context.Context, identity string, tier Tier) (Result, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", tier.Name, identity)

	count, ttl, err := l.store.Incr(ctx, key, tier.Window)
	if err != nil {
		return Result{
			Allowed: tier.FailOpen,
			Limit:   tier.Limit,
		}, err
	}

	now := time.Now()
	res := Result{
		Limit:   tier.Limit,
		ResetAt: now.Add(ttl),
	}
	if count <= tier.Limit {
		res.Allowed = true
		res.Remaining = tier.Limit - count
		return res, nil
	}

	res.Allowed = false
	res.Remaining = 0
	res.RetryAfter = ttl
	if res.RetryAfter <= 0 {
		res.RetryAfter = time.Second
	}
	return res, nil
}

// Status reports the current window state for (identity, tier) without
// consuming quota. It backs the quota headers on responses that are exempt
// from limiting, such as idempotent replays.
func (l *Limiter) Status(ctx context.Context, identity string, tier Tier) (Result, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", tier.Name, identity)

	count, ttl, err := l.store.Peek(ctx, key)
	if err != nil {
		return Result{Allowed: tier.FailOpen, Limit: tier.Limit}, err
	}

	res := Result{Allowed: true, Limit: tier.Limit}
	if rem := tier.Limit - count; rem > 0 {
		res.Remaining = rem
	}
	if ttl > 0 {
		res.ResetAt = time.Now().Add(ttl)
	}
	return res, nil
}
