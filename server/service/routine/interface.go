// Package routine is the chat and routine tracking service: it dispatches
// classified messages, records events, and builds cached summaries.
package routine

import (
	"context"
	"time"

	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/summary"
	"github.com/hrygo/babywise/store"
)

// Store is the interface for store operations needed by the routine service.
type Store interface {
	CreateRoutineEvent(ctx context.Context, create *store.RoutineEvent) (*store.RoutineEvent, error)
	ListRoutineEvents(ctx context.Context, find *store.FindRoutineEvent) ([]*store.RoutineEvent, error)
	QueryRoutineEvents(ctx context.Context, threadID string, start, end time.Time) ([]*store.RoutineEvent, error)
	GetLatestRoutineEvent(ctx context.Context, threadID string, eventType store.RoutineEventType) (*store.RoutineEvent, error)
	UpdateRoutineEvent(ctx context.Context, update *store.UpdateRoutineEvent) (*store.RoutineEvent, error)
	DeleteRoutineEvent(ctx context.Context, delete *store.DeleteRoutineEvent) error
	// ThreadGeneration changes whenever a thread's events are written.
	ThreadGeneration(threadID string) uint64
}

// ChatResponse is the answer to one chat message.
type ChatResponse struct {
	Response string `json:"response"`
	// Command is the classification of tracking commands; nil for conversation.
	Command *router.Result `json:"command,omitempty"`
	Locale  string         `json:"locale"`
	RTL     bool           `json:"rtl"`
	// Event is the recorded event, for sleep and feeding commands.
	Event *store.RoutineEvent `json:"-"`
	// Summary is set for summary commands.
	Summary *summary.Summary `json:"-"`
	// ErrorCode is set when the reply is a degraded fallback.
	ErrorCode string `json:"error_code,omitempty"`
}

// ListEventsRequest filters ListEvents. Zero values mean no filter.
type ListEventsRequest struct {
	ThreadID  string
	Start     *time.Time
	End       *time.Time
	EventType store.RoutineEventType
}

// IsRecent reports whether the request asks only for a thread's recent events.
func (r *ListEventsRequest) IsRecent() bool {
	return r.Start == nil && r.End == nil && r.EventType == ""
}

// UpdateEventRequest holds the fields to change; nil fields are kept.
type UpdateEventRequest struct {
	EventType *store.RoutineEventType
	StartTime *time.Time
	EndTime   *time.Time
	Notes     *string
}
