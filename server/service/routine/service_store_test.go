package routine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/plugin/ai/summary"
	"github.com/hrygo/babywise/store"
	"github.com/hrygo/babywise/store/cache"
	teststore "github.com/hrygo/babywise/store/test"
)

// pausingStore holds the first range query after it has read the rows,
// until release is closed.
type pausingStore struct {
	*store.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) QueryRoutineEvents(ctx context.Context, threadID string, start, end time.Time) ([]*store.RoutineEvent, error) {
	events, err := p.Store.QueryRoutineEvents(ctx, threadID, start, end)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return events, err
}

func TestService_WithStore(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)

	sessions := session.NewSessionRecovery(session.NewSessionStore(ts.Cache(), time.Hour))
	svc := NewService(ts, ts.Cache(), router.NewClassifier(aitime.NewParser(time.UTC)), nil, sessions, Config{Location: time.UTC})
	svc.now = func() time.Time { return testNow }

	_, err := svc.HandleMessage(ctx, "thread-1", "fell asleep at 1pm", "en")
	require.NoError(t, err)

	before, err := svc.Summarize(ctx, "thread-1", summary.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 1, before.Sleep.Count)
	assert.Equal(t, 0, before.Sleep.TotalDurationMinutes)

	// Recording an event invalidates the cached summary.
	_, err = svc.HandleMessage(ctx, "thread-1", "woke up at 2:30pm", "en")
	require.NoError(t, err)

	after, err := svc.Summarize(ctx, "thread-1", summary.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 90, after.Sleep.TotalDurationMinutes)

	recent, err := svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "thread-1"})
	require.NoError(t, err)
	require.Len(t, recent, 2)

	require.NoError(t, svc.DeleteEvent(ctx, recent[0].ID))
	recent, err = svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "thread-1"})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestService_SummaryNotCachedAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	st := &pausingStore{Store: ts, read: make(chan struct{}), release: make(chan struct{})}

	sessions := session.NewSessionRecovery(session.NewSessionStore(ts.Cache(), time.Hour))
	svc := NewService(st, ts.Cache(), router.NewClassifier(aitime.NewParser(time.UTC)), nil, sessions, Config{Location: time.UTC})
	svc.now = func() time.Time { return testNow }

	_, err := svc.HandleMessage(ctx, "thread-1", "fell asleep at 1pm", "en")
	require.NoError(t, err)

	done := make(chan *summary.Summary, 1)
	go func() {
		sum, err := svc.Summarize(ctx, "thread-1", summary.PeriodDay)
		assert.NoError(t, err)
		done <- sum
	}()

	<-st.read
	_, err = svc.HandleMessage(ctx, "thread-1", "woke up at 2:30pm", "en")
	require.NoError(t, err)
	close(st.release)

	inFlight := <-done
	require.NotNil(t, inFlight)
	assert.Equal(t, 0, inFlight.Sleep.TotalDurationMinutes)

	after, err := svc.Summarize(ctx, "thread-1", summary.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Sleep.Count)
	assert.Equal(t, 90, after.Sleep.TotalDurationMinutes)
}

func TestService_RecentEventsNotCachedAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)

	sessions := session.NewSessionRecovery(session.NewSessionStore(ts.Cache(), time.Hour))
	svc := NewService(ts, ts.Cache(), router.NewClassifier(aitime.NewParser(time.UTC)), nil, sessions, Config{Location: time.UTC})
	svc.now = func() time.Time { return testNow }

	_, err := svc.HandleMessage(ctx, "thread-1", "fell asleep at 1pm", "en")
	require.NoError(t, err)
	gen := ts.ThreadGeneration("thread-1")

	// A write lands between the read and the cache fill.
	_, err = svc.HandleMessage(ctx, "thread-1", "woke up at 2:30pm", "en")
	require.NoError(t, err)
	assert.Greater(t, ts.ThreadGeneration("thread-1"), gen)

	svc.cacheThreadValue(ctx, "thread-1", gen, cache.RecentEventsKey("thread-1"), []string{"stale"}, time.Hour)
	_, ok := ts.Cache().Get(ctx, cache.RecentEventsKey("thread-1"))
	assert.False(t, ok)

	recent, err := svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "thread-1"})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
