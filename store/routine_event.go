package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// RoutineEventType is the kind of a routine event.
type RoutineEventType string

const (
	RoutineEventSleepStart RoutineEventType = "sleep_start"
	RoutineEventSleepEnd   RoutineEventType = "sleep_end"
	RoutineEventFeedStart  RoutineEventType = "feed_start"
	RoutineEventFeedEnd    RoutineEventType = "feed_end"
)

// IsValid returns true for the four known event types.
func (t RoutineEventType) IsValid() bool {
	switch t {
	case RoutineEventSleepStart, RoutineEventSleepEnd, RoutineEventFeedStart, RoutineEventFeedEnd:
		return true
	}
	return false
}

// IsSleep returns true for sleep start and end events.
func (t RoutineEventType) IsSleep() bool {
	return t == RoutineEventSleepStart || t == RoutineEventSleepEnd
}

// ErrNotFound is returned when a routine event does not exist.
var ErrNotFound = errors.New("routine event not found")

// RoutineEvent is the object representing a single tracked sleep or feeding event.
// End events are stored as their own rows and paired at read time.
type RoutineEvent struct {
	ID        int32
	UID       string
	ThreadID  string
	EventType RoutineEventType
	StartTs   int64
	// EndTs is an optional annotation set through updates; pairing never reads it.
	EndTs     *int64
	Notes     string
	LocalID   string
	CreatedTs int64
	UpdatedTs int64
}

// FindRoutineEvent is the find condition for routine events.
type FindRoutineEvent struct {
	ID        *int32
	UID       *string
	ThreadID  *string
	EventType *RoutineEventType
	LocalID   *string

	// Inclusive time range filters on start_ts
	StartTsAfter  *int64
	StartTsBefore *int64

	// Newest first instead of the default oldest first
	OrderByStartDesc bool

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateRoutineEvent is the update request for a routine event.
type UpdateRoutineEvent struct {
	ID        int32
	EventType *RoutineEventType
	StartTs   *int64
	EndTs     *int64
	Notes     *string
	UpdatedTs *int64
}

// DeleteRoutineEvent is the delete request for a routine event.
type DeleteRoutineEvent struct {
	ID int32
}

// CreateRoutineEvent creates a new routine event.
// A create carrying a thread/local_id pair that already exists returns the stored row unchanged.
func (s *Store) CreateRoutineEvent(ctx context.Context, create *RoutineEvent) (*RoutineEvent, error) {
	if !create.EventType.IsValid() {
		return nil, errors.Errorf("invalid event type %q", create.EventType)
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.LocalID != "" {
		existing, err := s.GetRoutineEvent(ctx, &FindRoutineEvent{ThreadID: &create.ThreadID, LocalID: &create.LocalID})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	event, err := s.driver.CreateRoutineEvent(ctx, create)
	if err != nil {
		return nil, err
	}
	s.invalidateThread(ctx, event.ThreadID)
	return event, nil
}

// ListRoutineEvents lists routine events with filter.
func (s *Store) ListRoutineEvents(ctx context.Context, find *FindRoutineEvent) ([]*RoutineEvent, error) {
	return s.driver.ListRoutineEvents(ctx, find)
}

// GetRoutineEvent gets the first routine event matching find, or nil.
func (s *Store) GetRoutineEvent(ctx context.Context, find *FindRoutineEvent) (*RoutineEvent, error) {
	list, err := s.driver.ListRoutineEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// QueryRoutineEvents returns a thread's events whose start falls in [start, end].
func (s *Store) QueryRoutineEvents(ctx context.Context, threadID string, start, end time.Time) ([]*RoutineEvent, error) {
	startTs, endTs := start.Unix(), end.Unix()
	return s.driver.ListRoutineEvents(ctx, &FindRoutineEvent{
		ThreadID:      &threadID,
		StartTsAfter:  &startTs,
		StartTsBefore: &endTs,
	})
}

// GetLatestRoutineEvent returns the most recent event of the given type in a thread, or nil.
func (s *Store) GetLatestRoutineEvent(ctx context.Context, threadID string, eventType RoutineEventType) (*RoutineEvent, error) {
	limit := 1
	return s.GetRoutineEvent(ctx, &FindRoutineEvent{
		ThreadID:         &threadID,
		EventType:        &eventType,
		OrderByStartDesc: true,
		Limit:            &limit,
	})
}

// UpdateRoutineEvent updates a routine event and returns the stored row.
func (s *Store) UpdateRoutineEvent(ctx context.Context, update *UpdateRoutineEvent) (*RoutineEvent, error) {
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	if err := s.driver.UpdateRoutineEvent(ctx, update); err != nil {
		return nil, err
	}
	event, err := s.GetRoutineEvent(ctx, &FindRoutineEvent{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrNotFound
	}
	s.invalidateThread(ctx, event.ThreadID)
	return event, nil
}

// DeleteRoutineEvent deletes a routine event.
func (s *Store) DeleteRoutineEvent(ctx context.Context, delete *DeleteRoutineEvent) error {
	event, err := s.GetRoutineEvent(ctx, &FindRoutineEvent{ID: &delete.ID})
	if err != nil {
		return err
	}
	if event == nil {
		return ErrNotFound
	}
	if err := s.driver.DeleteRoutineEvent(ctx, delete); err != nil {
		return err
	}
	s.invalidateThread(ctx, event.ThreadID)
	return nil
}

// Helper functions for routine event time operations

// StartTime returns the event instant.
func (e *RoutineEvent) StartTime() time.Time {
	return time.Unix(e.StartTs, 0)
}

// EndTime returns the optional end annotation.
func (e *RoutineEvent) EndTime() *time.Time {
	if e.EndTs == nil {
		return nil
	}
	t := time.Unix(*e.EndTs, 0)
	return &t
}
