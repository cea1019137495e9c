package ratelimit

import (
	"context"
	"time"

	"github.com/redis/rueidis"
	"github.com/rs/zerolog"
)

// RedisStore is a Store backed by Redis, for deployments where rate-limit
// counters must be shared across replicas. INCR gives the atomic increment;
// the key's TTL carries the window expiry, set once per window with
// PEXPIRE NX so concurrent first increments cannot extend it.
type RedisStore struct {
	client rueidis.Client
	log    zerolog.Logger
}

// NewRedisStore returns a Store that keeps counters in the given Redis
// client.
func NewRedisStore(client rueidis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

// Incr atomically increments the counter for key and returns the new count
// plus the remaining window time.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.client.Do(ctx, s.client.B().Incr().Key(key).Build()).ToInt64()
	if err != nil {
		return 0, 0, err
	}

	// Attach the window TTL if the key does not carry one yet. NX makes
	// this a no-op for every increment after the first.
	if err := s.client.Do(ctx,
		s.client.B().Pexpire().Key(key).Milliseconds(window.Milliseconds()).Nx().Build(),
	).Error(); err != nil {
		return 0, 0, err
	}

	ms, err := s.client.Do(ctx, s.client.B().Pttl().Key(key).Build()).ToInt64()
	if err != nil {
		return 0, 0, err
	}
	ttl := time.Duration(ms) * time.Millisecond
	if ms < 0 {
		// PTTL reports -1 for keys without expiry; treat the window as
		// fresh rather than permanent.
		s.log.Warn().Str("key", key).Msg("rate-limit counter missing TTL")
		ttl = window
	}
	return count, ttl, nil
}

// Peek returns the current count and remaining TTL for key without
// incrementing. A missing key reads as zero.
func (s *RedisStore) Peek(ctx context.Context, key string) (int64, time.Duration, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	count, err := resp.AsInt64()
	if err != nil {
		return 0, 0, err
	}

	ms, err := s.client.Do(ctx, s.client.B().Pttl().Key(key).Build()).ToInt64()
	if err != nil {
		return 0, 0, err
	}
	ttl := time.Duration(ms) * time.Millisecond
	if ms < 0 {
		ttl = 0
	}
	return count, ttl, nil
}
