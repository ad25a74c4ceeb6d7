// Package offline is the client side of routine tracking: it classifies and
// records events locally, replays them to the server in capture order, and
// falls back to a locally reconciled summary while the server is unreachable.
package offline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/babywise/store"
)

// Entry is one locally captured routine event.
type Entry struct {
	LocalID    string                 `json:"local_id"`
	ThreadID   string                 `json:"thread_id"`
	EventType  store.RoutineEventType `json:"event_type"`
	StartTime  time.Time              `json:"start_time"`
	Notes      string                 `json:"notes,omitempty"`
	Synced     bool                   `json:"synced"`
	ServerID   int32                  `json:"server_id,omitempty"`
	CapturedAt time.Time              `json:"captured_at"`
	// Rejected entries were refused by the server and are never retried.
	Rejected bool `json:"rejected,omitempty"`
}

// RoutineEvent converts the entry to the stored event shape for local reconciliation.
func (e *Entry) RoutineEvent() *store.RoutineEvent {
	return &store.RoutineEvent{
		ID:        e.ServerID,
		ThreadID:  e.ThreadID,
		EventType: e.EventType,
		StartTs:   e.StartTime.Unix(),
		Notes:     e.Notes,
		LocalID:   e.LocalID,
		CreatedTs: e.CapturedAt.Unix(),
	}
}

// Buffer is the ordered list of captured entries. When a path is set every
// change is written through to a JSON file so entries survive restarts.
type Buffer struct {
	mu      sync.Mutex
	path    string
	entries []*Entry
}

// NewBuffer creates an in-memory buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// OpenBuffer loads the buffer persisted at path, or starts an empty one.
func OpenBuffer(path string) (*Buffer, error) {
	b := &Buffer{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read buffer %s", path)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &b.entries); err != nil {
			return nil, errors.Wrapf(err, "failed to parse buffer %s", path)
		}
	}
	return b, nil
}

// Add appends an entry, assigning its local id when missing.
func (b *Buffer) Add(e *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.LocalID == "" {
		e.LocalID = uuid.NewString()
	}
	b.entries = append(b.entries, e)
	return b.persistLocked()
}

// Pending returns copies of the entries still to submit, in capture order.
func (b *Buffer) Pending() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var pending []Entry
	for _, e := range b.entries {
		if !e.Synced && !e.Rejected {
			pending = append(pending, *e)
		}
	}
	return pending
}

// Unsynced returns the thread's entries not yet accepted by the server.
func (b *Buffer) Unsynced(threadID string) []*store.RoutineEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	var events []*store.RoutineEvent
	for _, e := range b.entries {
		if e.ThreadID == threadID && !e.Synced && !e.Rejected {
			events = append(events, e.RoutineEvent())
		}
	}
	return events
}

// MarkSynced records that the server accepted an entry.
func (b *Buffer) MarkSynced(localID string, serverID int32) error {
	return b.update(localID, func(e *Entry) {
		e.Synced = true
		e.ServerID = serverID
	})
}

// MarkRejected records that the server refused an entry.
func (b *Buffer) MarkRejected(localID string) error {
	return b.update(localID, func(e *Entry) {
		e.Rejected = true
	})
}

// Len returns the number of entries, synced or not.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *Buffer) update(localID string, fn func(*Entry)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.LocalID == localID {
			fn(e)
			return b.persistLocked()
		}
	}
	return errors.Errorf("entry %s not found", localID)
}

// persistLocked writes the buffer atomically through a temp file.
func (b *Buffer) persistLocked() error {
	if b.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal buffer")
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create buffer directory")
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write buffer")
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return errors.Wrap(err, "failed to replace buffer")
	}
	return nil
}
