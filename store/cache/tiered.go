package cache

import (
	"context"
	"log/slog"
	"time"
)

// TieredCache implements a two-tier caching strategy:
// - L1: In-memory cache (fast, per process, always on)
// - L2: Redis cache (shared across instances, optional)
//
// Set BABYWISE_REDIS_ADDR to enable L2.
type TieredCache struct {
	l1    Cache
	l2    Cache
	l1TTL time.Duration
}

// NewTieredCache creates a tiered cache. l2 may be nil.
// l1TTL caps how long a value promoted from L2 stays in L1.
func NewTieredCache(l1, l2 Cache, l1TTL time.Duration) *TieredCache {
	return &TieredCache{
		l1:    l1,
		l2:    l2,
		l1TTL: l1TTL,
	}
}

// Get checks L1, then L2; L2 hits are promoted to L1.
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := t.l1.Get(ctx, key); ok {
		return value, true
	}
	if t.l2 == nil {
		return nil, false
	}
	value, ok := t.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	_ = t.l1.Set(ctx, key, value, t.l1TTL)
	return value, true
}

// Set stores a value in both tiers. An L2 failure is logged, not returned.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if t.l1TTL > 0 && (l1TTL <= 0 || l1TTL > t.l1TTL) {
		l1TTL = t.l1TTL
	}
	if err := t.l1.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}
	if t.l2 != nil {
		if err := t.l2.Set(ctx, key, value, ttl); err != nil {
			slog.Warn("L2 cache set failed", "key", key, "error", err)
		}
	}
	return nil
}

// Invalidate removes matching entries from both tiers.
func (t *TieredCache) Invalidate(ctx context.Context, pattern string) error {
	if err := t.l1.Invalidate(ctx, pattern); err != nil {
		return err
	}
	if t.l2 != nil {
		return t.l2.Invalidate(ctx, pattern)
	}
	return nil
}

// Close closes both tiers.
func (t *TieredCache) Close() error {
	err := t.l1.Close()
	if t.l2 != nil {
		if l2Err := t.l2.Close(); err == nil {
			err = l2Err
		}
	}
	return err
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() map[string]any {
	stats := map[string]any{
		"l2_enabled": t.l2 != nil,
	}
	if m, ok := t.l1.(*MemoryCache); ok {
		stats["l1_size"] = m.Size()
	}
	return stats
}

var _ Cache = (*TieredCache)(nil)
