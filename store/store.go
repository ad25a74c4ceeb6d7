package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/store/cache"
)

// Store provides database access to routine events.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// cache holds summaries and recent-event listings; writes invalidate a thread's keys.
	cache cache.Cache

	mu sync.Mutex
	// generations counts writes per thread so readers can tell a result went stale.
	generations map[string]uint64
}

// New creates a new instance of Store.
// A nil cache falls back to a private in-memory cache.
func New(driver Driver, profile *profile.Profile, c cache.Cache) *Store {
	if c == nil {
		c = cache.NewMemoryCache(cache.MemoryConfig{
			Capacity:        1000,
			DefaultTTL:      10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		})
	}
	return &Store{
		driver:      driver,
		profile:     profile,
		cache:       c,
		generations: make(map[string]uint64),
	}
}

// Cache returns the cache shared with the services built on top of the store.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

func (s *Store) Close() error {
	if err := s.cache.Close(); err != nil {
		slog.Warn("failed to close cache", "error", err)
	}
	return s.driver.Close()
}

// ThreadGeneration returns the number of writes seen for a thread.
// A cached value computed from reads taken under an older generation is stale.
func (s *Store) ThreadGeneration(threadID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[threadID]
}

// invalidateThread bumps the thread generation, then drops every cached
// summary and listing of the thread.
func (s *Store) invalidateThread(ctx context.Context, threadID string) {
	s.mu.Lock()
	s.generations[threadID]++
	s.mu.Unlock()
	for _, pattern := range []string{cache.SummaryPattern(threadID), cache.RecentEventsKey(threadID)} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			slog.Warn("failed to invalidate cache", "pattern", pattern, "error", err)
		}
	}
}
