// Package cache provides the byte-oriented caches used for routine summaries,
// recent events and conversation context.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the cache interface shared by the memory, redis and tiered caches.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl <= 0 uses the cache's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: exact key, or a prefix ending in * (routine_summary:thread-1:*)
	Invalidate(ctx context.Context, pattern string) error

	Close() error
}

// Key prefixes and TTLs for routine data.
const (
	SummaryPrefix      = "routine_summary"
	RecentEventsPrefix = "recent_events"
	SessionPrefix      = "session"

	DefaultSummaryTTL      = time.Hour
	DefaultRecentEventsTTL = 30 * time.Minute
)

// GenerateCacheKey joins key components with ":".
func GenerateCacheKey(components ...string) string {
	return strings.Join(components, ":")
}

// KeyHash generates a short SHA256 hash of the key, for components that may
// carry arbitrary user text.
func KeyHash(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])[:16]
}

// SummaryKey is the cache key for a thread's summary of one period window.
func SummaryKey(threadID, period, windowStart string) string {
	return GenerateCacheKey(SummaryPrefix, threadID, period, windowStart)
}

// SummaryPattern matches every cached summary of a thread.
func SummaryPattern(threadID string) string {
	return GenerateCacheKey(SummaryPrefix, threadID, "*")
}

// RecentEventsKey is the cache key for a thread's recent events listing.
func RecentEventsKey(threadID string) string {
	return GenerateCacheKey(RecentEventsPrefix, threadID)
}

// SessionKey is the cache key for a thread's conversation context.
func SessionKey(threadID string) string {
	return GenerateCacheKey(SessionPrefix, threadID)
}
