package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window holds one fixed-window counter, its start time, and its length.
type window struct {
	count  int64
	start  time.Time
	length time.Duration
}

// MemoryStore is an in-process Store backed by a mutex-guarded map. Expired
// windows are reset lazily on access and swept opportunistically so memory
// stays bounded without a background goroutine.
//
// This store is safe for concurrent use and suitable for single-process
// deployments; use RedisStore when counters must be shared across replicas.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	// sweepN counts lookups since the last sweep of expired entries.
	sweepN int
}

// NewMemoryStore returns an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// sweepThreshold is the number of lookups between opportunistic sweeps.
const sweepThreshold = 5000

// Incr atomically increments the counter for key within its current window.
// A new window starts when none exists or the previous one has expired.
func (s *MemoryStore) Incr(_ context.Context, key string, windowLen time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepN++
	if s.sweepN >= sweepThreshold {
		for k, w := range s.windows {
			if now.Sub(w.start) >= w.length {
				delete(s.windows, k)
			}
		}
		s.sweepN = 0
	}

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowLen {
		w = &window{start: now, length: windowLen}
		s.windows[key] = w
	}
	w.count++

	ttl := windowLen - now.Sub(w.start)
	if ttl < 0 {
		ttl = 0
	}
	return w.count, ttl, nil
}

// Peek returns the current count and remaining TTL for key without
// incrementing. A missing or expired window reads as zero.
func (s *MemoryStore) Peek(_ context.Context, key string) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return 0, 0, nil
	}
	ttl := w.length - now.Sub(w.start)
	if ttl <= 0 {
		return 0, 0, nil
	}
	return w.count, ttl, nil
}
