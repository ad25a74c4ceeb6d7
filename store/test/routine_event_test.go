package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/babywise/store"
	"github.com/hrygo/babywise/store/cache"
)

func createEvent(ctx context.Context, t *testing.T, ts *store.Store, threadID string, eventType store.RoutineEventType, at time.Time) *store.RoutineEvent {
	t.Helper()
	event, err := ts.CreateRoutineEvent(ctx, &store.RoutineEvent{
		ThreadID:  threadID,
		EventType: eventType,
		StartTs:   at.Unix(),
	})
	require.NoError(t, err)
	return event
}

func TestRoutineEventStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	base := time.Date(2026, 1, 27, 8, 0, 0, 0, time.UTC)

	created := createEvent(ctx, t, ts, "thread-1", store.RoutineEventSleepStart, base)
	assert.Greater(t, created.ID, int32(0))
	assert.NotEmpty(t, created.UID)
	assert.NotZero(t, created.CreatedTs)

	createEvent(ctx, t, ts, "thread-1", store.RoutineEventSleepEnd, base.Add(90*time.Minute))
	createEvent(ctx, t, ts, "thread-1", store.RoutineEventFeedStart, base.Add(3*time.Hour))
	createEvent(ctx, t, ts, "thread-2", store.RoutineEventSleepStart, base)

	events, err := ts.QueryRoutineEvents(ctx, "thread-1", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, store.RoutineEventSleepStart, events[0].EventType)
	assert.Equal(t, store.RoutineEventSleepEnd, events[1].EventType)
	assert.Equal(t, store.RoutineEventFeedStart, events[2].EventType)

	// Both bounds are inclusive.
	events, err = ts.QueryRoutineEvents(ctx, "thread-1", base, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 2)

	latest, err := ts.GetLatestRoutineEvent(ctx, "thread-1", store.RoutineEventSleepStart)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, created.ID, latest.ID)

	latest, err = ts.GetLatestRoutineEvent(ctx, "thread-1", store.RoutineEventFeedEnd)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRoutineEventStore_LocalIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	at := time.Date(2026, 1, 27, 14, 30, 0, 0, time.UTC).Unix()

	first, err := ts.CreateRoutineEvent(ctx, &store.RoutineEvent{
		ThreadID: "thread-1", EventType: store.RoutineEventSleepStart, StartTs: at, LocalID: "local-1",
	})
	require.NoError(t, err)

	second, err := ts.CreateRoutineEvent(ctx, &store.RoutineEvent{
		ThreadID: "thread-1", EventType: store.RoutineEventSleepStart, StartTs: at, LocalID: "local-1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	threadID := "thread-1"
	list, err := ts.ListRoutineEvents(ctx, &store.FindRoutineEvent{ThreadID: &threadID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// The same local_id in another thread is a different event.
	other, err := ts.CreateRoutineEvent(ctx, &store.RoutineEvent{
		ThreadID: "thread-2", EventType: store.RoutineEventSleepStart, StartTs: at, LocalID: "local-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestRoutineEventStore_RejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateRoutineEvent(ctx, &store.RoutineEvent{ThreadID: "t", EventType: "nap", StartTs: 1})
	assert.Error(t, err)
}

func TestRoutineEventStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	base := time.Date(2026, 1, 27, 8, 0, 0, 0, time.UTC)
	event := createEvent(ctx, t, ts, "thread-1", store.RoutineEventFeedStart, base)

	notes := "left side"
	endTs := base.Add(20 * time.Minute).Unix()
	updated, err := ts.UpdateRoutineEvent(ctx, &store.UpdateRoutineEvent{ID: event.ID, Notes: &notes, EndTs: &endTs})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	require.NotNil(t, updated.EndTs)
	assert.Equal(t, endTs, *updated.EndTs)
	assert.Equal(t, base.Add(20*time.Minute).Unix(), updated.EndTime().Unix())

	_, err = ts.UpdateRoutineEvent(ctx, &store.UpdateRoutineEvent{ID: 9999, Notes: &notes})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, ts.DeleteRoutineEvent(ctx, &store.DeleteRoutineEvent{ID: event.ID}))
	assert.ErrorIs(t, ts.DeleteRoutineEvent(ctx, &store.DeleteRoutineEvent{ID: event.ID}), store.ErrNotFound)
}

func TestRoutineEventStore_WritesInvalidateThreadCache(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	key := cache.SummaryKey("thread-1", "day", "2026-01-27")
	other := cache.SummaryKey("thread-2", "day", "2026-01-27")
	require.NoError(t, ts.Cache().Set(ctx, key, []byte("{}"), 0))
	require.NoError(t, ts.Cache().Set(ctx, other, []byte("{}"), 0))

	createEvent(ctx, t, ts, "thread-1", store.RoutineEventSleepStart, time.Now())

	_, ok := ts.Cache().Get(ctx, key)
	assert.False(t, ok)
	_, ok = ts.Cache().Get(ctx, other)
	assert.True(t, ok)
}
