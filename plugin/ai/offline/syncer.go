package offline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/plugin/ai/timeout"
)

// DefaultProbeInterval is how often connectivity is checked between polls.
const DefaultProbeInterval = 30 * time.Second

// Syncer replays buffered entries to the server in capture order.
// It retries without limit: every poll interval, on every offline to
// online transition, and whenever it is kicked.
type Syncer struct {
	buffer        *Buffer
	remote        Remote
	pollInterval  time.Duration
	probeInterval time.Duration

	mu     sync.Mutex // serializes SyncOnce
	online atomic.Bool
	kick   chan struct{}
}

// NewSyncer creates a syncer. Zero intervals use the defaults.
func NewSyncer(buffer *Buffer, remote Remote, pollInterval, probeInterval time.Duration) *Syncer {
	if pollInterval <= 0 {
		pollInterval = timeout.DefaultPollInterval
	}
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}
	return &Syncer{
		buffer:        buffer,
		remote:        remote,
		pollInterval:  pollInterval,
		probeInterval: probeInterval,
		kick:          make(chan struct{}, 1),
	}
}

// SyncOnce submits pending entries oldest first and returns how many were
// accepted. It stops at the first transport failure so that a later entry is
// never stored before an earlier one; entries the server rejects are marked
// and skipped.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := 0
	for _, entry := range s.buffer.Pending() {
		id, err := s.remote.CreateEvent(ctx, &entry)
		if errors.Is(err, ErrRejected) {
			slog.Warn("server rejected buffered event",
				"local_id", entry.LocalID,
				"thread_id", entry.ThreadID,
				"event_type", entry.EventType,
				"error", err)
			if err := s.buffer.MarkRejected(entry.LocalID); err != nil {
				return synced, err
			}
			continue
		}
		if err != nil {
			s.online.Store(false)
			return synced, err
		}
		if err := s.buffer.MarkSynced(entry.LocalID, id); err != nil {
			return synced, err
		}
		synced++
	}
	s.online.Store(true)
	return synced, nil
}

// Online reports the last known connectivity.
func (s *Syncer) Online() bool {
	return s.online.Load()
}

// NotifyOnline tells the syncer connectivity is back; it syncs right away.
func (s *Syncer) NotifyOnline() {
	s.online.Store(true)
	s.Trigger()
}

// Trigger requests a sync attempt without waiting for it.
func (s *Syncer) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run syncs until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	probe := time.NewTicker(s.probeInterval)
	defer probe.Stop()

	s.attempt(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			s.attempt(ctx)
		case <-probe.C:
			s.probe(ctx)
		case <-s.kick:
			s.attempt(ctx)
		}
	}
}

// probe checks connectivity and syncs on an offline to online transition.
func (s *Syncer) probe(ctx context.Context) {
	healthy := s.remote.Healthy(ctx)
	wasOnline := s.online.Swap(healthy)
	if healthy && !wasOnline {
		slog.Info("connection restored, syncing buffered events")
		s.attempt(ctx)
	}
}

func (s *Syncer) attempt(ctx context.Context) {
	if len(s.buffer.Pending()) == 0 {
		return
	}
	n, err := s.SyncOnce(ctx)
	if err != nil {
		slog.Debug("sync attempt failed, will retry", "synced", n, "error", err)
		return
	}
	if n > 0 {
		slog.Info("synced buffered events", "count", n)
	}
}
