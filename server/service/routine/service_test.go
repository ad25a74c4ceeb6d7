package routine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/babywise/plugin/ai/advice"
	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/locale"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/plugin/ai/summary"
	"github.com/hrygo/babywise/plugin/ai/timeout"
	apperrors "github.com/hrygo/babywise/server/internal/errors"
	"github.com/hrygo/babywise/server/internal/observability"
	"github.com/hrygo/babywise/store"
	"github.com/hrygo/babywise/store/cache"
)

// MockStore is an in-memory Store.
type MockStore struct {
	mu      sync.Mutex
	events  []*store.RoutineEvent
	nextID  int32
	queries int
	err     error
	gate    chan struct{}
	gens    map[string]uint64
}

func NewMockStore() *MockStore {
	return &MockStore{nextID: 1, gens: make(map[string]uint64)}
}

func (m *MockStore) ThreadGeneration(threadID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[threadID]
}

func (m *MockStore) CreateRoutineEvent(_ context.Context, create *store.RoutineEvent) (*store.RoutineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if create.LocalID != "" {
		for _, e := range m.events {
			if e.ThreadID == create.ThreadID && e.LocalID == create.LocalID {
				return e, nil
			}
		}
	}
	event := *create
	event.ID = m.nextID
	m.nextID++
	m.events = append(m.events, &event)
	m.gens[event.ThreadID]++
	return &event, nil
}

func (m *MockStore) ListRoutineEvents(_ context.Context, find *store.FindRoutineEvent) ([]*store.RoutineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.err != nil {
		return nil, m.err
	}
	var list []*store.RoutineEvent
	for _, e := range m.events {
		if find.ID != nil && e.ID != *find.ID {
			continue
		}
		if find.ThreadID != nil && e.ThreadID != *find.ThreadID {
			continue
		}
		if find.EventType != nil && e.EventType != *find.EventType {
			continue
		}
		if find.StartTsAfter != nil && e.StartTs < *find.StartTsAfter {
			continue
		}
		if find.StartTsBefore != nil && e.StartTs > *find.StartTsBefore {
			continue
		}
		list = append(list, e)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if find.OrderByStartDesc {
			return list[i].StartTs > list[j].StartTs
		}
		return list[i].StartTs < list[j].StartTs
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (m *MockStore) QueryRoutineEvents(ctx context.Context, threadID string, start, end time.Time) ([]*store.RoutineEvent, error) {
	if m.gate != nil {
		<-m.gate
	}
	startTs, endTs := start.Unix(), end.Unix()
	return m.ListRoutineEvents(ctx, &store.FindRoutineEvent{ThreadID: &threadID, StartTsAfter: &startTs, StartTsBefore: &endTs})
}

func (m *MockStore) GetLatestRoutineEvent(ctx context.Context, threadID string, eventType store.RoutineEventType) (*store.RoutineEvent, error) {
	limit := 1
	list, err := m.ListRoutineEvents(ctx, &store.FindRoutineEvent{ThreadID: &threadID, EventType: &eventType, OrderByStartDesc: true, Limit: &limit})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *MockStore) UpdateRoutineEvent(_ context.Context, update *store.UpdateRoutineEvent) (*store.RoutineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID != update.ID {
			continue
		}
		if update.EventType != nil {
			e.EventType = *update.EventType
		}
		if update.StartTs != nil {
			e.StartTs = *update.StartTs
		}
		if update.EndTs != nil {
			e.EndTs = update.EndTs
		}
		if update.Notes != nil {
			e.Notes = *update.Notes
		}
		m.gens[e.ThreadID]++
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) DeleteRoutineEvent(_ context.Context, del *store.DeleteRoutineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.events {
		if e.ID == del.ID {
			m.events = append(m.events[:i], m.events[i+1:]...)
			m.gens[e.ThreadID]++
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MockStore) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// mockAdvisor records the conversation it was asked about.
type mockAdvisor struct {
	reply string
	err   error
	seen  *session.ConversationContext
}

func (m *mockAdvisor) Generate(_ context.Context, c *session.ConversationContext) (string, error) {
	m.seen = c
	return m.reply, m.err
}

var testNow = time.Date(2026, 1, 27, 22, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, st Store, advisor advice.AdviceGenerator) (*Service, cache.Cache) {
	t.Helper()
	c := cache.NewMemoryCache(cache.MemoryConfig{Capacity: 100, DefaultTTL: time.Hour, CleanupInterval: time.Hour})
	t.Cleanup(func() { _ = c.Close() })

	sessions := session.NewSessionRecovery(session.NewSessionStore(c, time.Hour))
	classifier := router.NewClassifier(aitime.NewParser(time.UTC))
	svc := NewService(st, c, classifier, advisor, sessions, Config{Location: time.UTC})
	svc.now = func() time.Time { return testNow }
	return svc, c
}

func TestHandleMessage_Commands(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	svc, _ := newTestService(t, st, nil)

	tests := []struct {
		name      string
		message   string
		locale    string
		eventType store.RoutineEventType
		at        time.Time
		response  string
	}{
		{"sleep with time", "baby fell asleep at 8:30pm", "en", store.RoutineEventSleepStart,
			time.Date(2026, 1, 27, 20, 30, 0, 0, time.UTC), "Recorded sleep start at 8:30 PM"},
		{"sleep without time", "baby fell asleep", "en", store.RoutineEventSleepStart,
			testNow, "Recorded sleep start at 10:00 PM"},
		{"wake", "woke up at 6am", "en", store.RoutineEventSleepEnd,
			time.Date(2026, 1, 27, 6, 0, 0, 0, time.UTC), "Recorded wake up at 6:00 AM"},
		{"feeding", "fed her at 3pm", "en", store.RoutineEventFeedStart,
			time.Date(2026, 1, 27, 15, 0, 0, 0, time.UTC), "Recorded feeding start at 3:00 PM"},
		{"hebrew sleep", "התינוק נרדם ב-20:00", "", store.RoutineEventSleepStart,
			time.Date(2026, 1, 27, 20, 0, 0, 0, time.UTC), "רשמתי שהתינוק התחיל לישון ב-20:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.HandleMessage(ctx, "thread-1", tt.message, tt.locale)
			require.NoError(t, err)
			require.NotNil(t, resp.Event)
			assert.Equal(t, tt.eventType, resp.Event.EventType)
			assert.Equal(t, tt.at.Unix(), resp.Event.StartTs)
			assert.Equal(t, tt.message, resp.Event.Notes)
			assert.Equal(t, tt.response, resp.Response)
			require.NotNil(t, resp.Command)
			assert.Equal(t, router.Subtype(tt.eventType), resp.Command.Subtype)
			assert.Equal(t, locale.IsRTL(resp.Locale), resp.RTL)
		})
	}
}

func TestHandleMessage_Summary(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	svc, _ := newTestService(t, st, nil)

	for _, msg := range []string{"fell asleep at 1pm", "woke up at 2:45pm", "fed him at 4pm"} {
		_, err := svc.HandleMessage(ctx, "thread-1", msg, "en")
		require.NoError(t, err)
	}
	// Another thread's events never leak into the summary.
	_, err := svc.HandleMessage(ctx, "thread-2", "fell asleep at 3pm", "en")
	require.NoError(t, err)

	resp, err := svc.HandleMessage(ctx, "thread-1", "show me today's summary", "en")
	require.NoError(t, err)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, summary.PeriodDay, resp.Summary.Period)
	assert.Equal(t, 1, resp.Summary.Sleep.Count)
	assert.Equal(t, 105, resp.Summary.Sleep.TotalDurationMinutes)
	assert.Equal(t, 1, resp.Summary.Feeding.Count)
	assert.Contains(t, resp.Response, "**Baby Routine Summary for Today**")
	assert.Contains(t, resp.Response, "1h 45m")
	assert.Nil(t, resp.Event)

	resp, err = svc.HandleMessage(ctx, "thread-1", "סיכום שבועי", "")
	require.NoError(t, err)
	assert.Equal(t, summary.PeriodWeek, resp.Summary.Period)
	assert.True(t, resp.RTL)
	assert.Contains(t, resp.Response, "1ש 45ד")
}

func TestHandleMessage_Help(t *testing.T) {
	svc, _ := newTestService(t, NewMockStore(), nil)
	resp, err := svc.HandleMessage(context.Background(), "thread-1", "help", "en")
	require.NoError(t, err)
	assert.Equal(t, locale.Help("en"), resp.Response)
}

func TestHandleMessage_Conversational(t *testing.T) {
	ctx := context.Background()
	advisor := &mockAdvisor{reply: "Keep wake windows short."}
	svc, _ := newTestService(t, NewMockStore(), advisor)

	resp, err := svc.HandleMessage(ctx, "thread-1", "my 4 month old won't nap, what should I do?", "en")
	require.NoError(t, err)
	assert.Equal(t, "Keep wake windows short.", resp.Response)
	assert.Nil(t, resp.Command)
	assert.Empty(t, resp.ErrorCode)

	require.NotNil(t, advisor.seen)
	assert.Equal(t, string(router.DomainSleep), advisor.seen.Domain)
	assert.Equal(t, "4 months", advisor.seen.Metadata[advice.FactBabyAge])

	conversation, err := svc.Context(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, conversation.Messages, 2)
	assert.Equal(t, session.RoleAssistant, conversation.Messages[1].Role)

	require.NoError(t, svc.Reset(ctx, "thread-1"))
	conversation, err = svc.Context(ctx, "thread-1")
	require.NoError(t, err)
	assert.Empty(t, conversation.Messages)
}

func TestHandleMessage_AdviceUnavailable(t *testing.T) {
	advisor := &mockAdvisor{err: advice.ErrUnavailable}
	svc, _ := newTestService(t, NewMockStore(), advisor)

	resp, err := svc.HandleMessage(context.Background(), "thread-1", "איך מרדימים תינוק?", "")
	require.NoError(t, err)
	assert.Equal(t, locale.AdviceUnavailable("he"), resp.Response)
	assert.Equal(t, string(apperrors.ErrCodeLLMUnavailable), resp.ErrorCode)
}

func TestHandleMessage_Errors(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	svc, _ := newTestService(t, st, nil)

	_, err := svc.HandleMessage(ctx, "", "fell asleep", "en")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	_, err = svc.HandleMessage(ctx, "thread-1", "   ", "en")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	st.err = errors.New("database is locked")
	_, err = svc.HandleMessage(ctx, "thread-1", "fell asleep", "en")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))

	_, err = svc.Summarize(ctx, "thread-1", summary.PeriodDay)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
}

func TestHandleMessage_FailureLogTruncatesMessage(t *testing.T) {
	st := NewMockStore()
	svc, _ := newTestService(t, st, nil)
	st.err = errors.New("database is locked")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := observability.WithRequestContext(context.Background(),
		observability.NewRequestContextWithID(logger, "req-1", "thread-1"))

	message := "fell asleep " + strings.Repeat("z", 2*timeout.MaxTruncateLength)
	_, err := svc.HandleMessage(ctx, "thread-1", message, "en")
	require.Error(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "failed to handle message", line["msg"])
	assert.Equal(t, "req-1", line[observability.LogFieldRequestID])
	logged, ok := line[observability.LogFieldMessage].(string)
	require.True(t, ok)
	assert.Equal(t, timeout.Truncate(message), logged)
	assert.Len(t, []rune(logged), timeout.MaxTruncateLength+3)
}

func TestRecordEvent_Validation(t *testing.T) {
	svc, _ := newTestService(t, NewMockStore(), nil)
	ctx := context.Background()

	_, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: "diaper", StartTs: testNow.Unix()})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	_, err = svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: store.RoutineEventSleepStart})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	first, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: store.RoutineEventSleepStart, StartTs: testNow.Unix(), LocalID: "abc"})
	require.NoError(t, err)
	retry, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: store.RoutineEventSleepStart, StartTs: testNow.Unix(), LocalID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)
}

func TestSummarize_Cache(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	svc, c := newTestService(t, st, nil)

	_, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: store.RoutineEventFeedStart, StartTs: testNow.Add(-time.Hour).Unix()})
	require.NoError(t, err)

	first, err := svc.Summarize(ctx, "t1", summary.PeriodDay)
	require.NoError(t, err)
	second, err := svc.Summarize(ctx, "t1", summary.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 1, st.queryCount())
	assert.Equal(t, first.Feeding.Count, second.Feeding.Count)

	_, ok := c.Get(ctx, cache.SummaryKey("t1", "day", "2026-01-27"))
	assert.True(t, ok)
}

func TestSummarize_CoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	st.gate = make(chan struct{})
	svc, _ := newTestService(t, st, nil)

	var wg sync.WaitGroup
	results := make([]*summary.Summary, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Summarize(ctx, "t1", summary.PeriodDay)
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(st.gate)
	wg.Wait()

	assert.Equal(t, 1, st.queryCount())
	for _, r := range results {
		assert.NotNil(t, r)
	}
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	svc, c := newTestService(t, st, nil)

	for i, eventType := range []store.RoutineEventType{store.RoutineEventSleepStart, store.RoutineEventSleepEnd, store.RoutineEventFeedStart} {
		_, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: eventType, StartTs: testNow.Add(time.Duration(i-3) * time.Hour).Unix()})
		require.NoError(t, err)
	}

	recent, err := svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "t1"})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, store.RoutineEventFeedStart, recent[0].EventType)
	_, ok := c.Get(ctx, cache.RecentEventsKey("t1"))
	assert.True(t, ok)

	start := testNow.Add(-150 * time.Minute)
	filtered, err := svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "t1", Start: &start, EventType: store.RoutineEventSleepEnd})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	_, err = svc.ListEvents(ctx, &ListEventsRequest{ThreadID: "t1", EventType: "bath"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
}

func TestUpdateDeleteLatest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewMockStore(), nil)

	event, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: store.RoutineEventSleepStart, StartTs: testNow.Unix()})
	require.NoError(t, err)

	notes := "long nap"
	end := testNow.Add(2 * time.Hour)
	updated, err := svc.UpdateEvent(ctx, event.ID, &UpdateEventRequest{Notes: &notes, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "long nap", updated.Notes)
	require.NotNil(t, updated.EndTs)
	assert.Equal(t, end.Unix(), *updated.EndTs)

	latest, err := svc.LatestEvent(ctx, "t1", store.RoutineEventSleepStart)
	require.NoError(t, err)
	assert.Equal(t, event.ID, latest.ID)

	_, err = svc.LatestEvent(ctx, "t1", store.RoutineEventFeedEnd)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	require.NoError(t, svc.DeleteEvent(ctx, event.ID))
	err = svc.DeleteEvent(ctx, event.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.UpdateEvent(ctx, 999, &UpdateEventRequest{Notes: &notes})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewMockStore(), nil)

	yesterday := testNow.AddDate(0, 0, -1)
	for _, e := range []struct {
		eventType store.RoutineEventType
		at        time.Time
	}{
		{store.RoutineEventSleepStart, yesterday.Add(-8 * time.Hour)}, // 14:00
		{store.RoutineEventSleepEnd, yesterday.Add(-6 * time.Hour)},   // 16:00
		{store.RoutineEventFeedStart, yesterday.Add(-5 * time.Hour)},
		{store.RoutineEventFeedStart, testNow.Add(-2 * time.Hour)},
		{store.RoutineEventFeedStart, testNow.AddDate(0, 0, -30)}, // out of range
	} {
		_, err := svc.RecordEvent(ctx, &store.RoutineEvent{ThreadID: "t1", EventType: e.eventType, StartTs: e.at.Unix()})
		require.NoError(t, err)
	}

	analytics, err := svc.Analytics(ctx, "t1", 7)
	require.NoError(t, err)
	require.Len(t, analytics.Days, 7)
	assert.Equal(t, "2026-01-26", analytics.Days[5].Date)
	assert.Equal(t, 120, analytics.Days[5].SleepMinutes)
	assert.Equal(t, 1, analytics.Days[5].FeedingCount)
	assert.Equal(t, 1, analytics.Days[6].FeedingCount)
	assert.InDelta(t, 2.0/7.0, analytics.AverageFeedings, 0.001)

	_, err = svc.Analytics(ctx, "t1", MaxAnalyticsDays+1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
}

func TestHandleMessage_DefaultLocale(t *testing.T) {
	svc, _ := newTestService(t, NewMockStore(), nil)
	svc.defaultLocale = "he"

	resp, err := svc.HandleMessage(context.Background(), "thread-1", "fell asleep at 8:30pm", "")
	require.NoError(t, err)
	assert.Equal(t, "he", resp.Locale)
	assert.Equal(t, "רשמתי שהתינוק התחיל לישון ב-20:30", resp.Response)

	resp, err = svc.HandleMessage(context.Background(), "thread-1", "fell asleep at 9pm", "en")
	require.NoError(t, err)
	assert.Equal(t, "Recorded sleep start at 9:00 PM", resp.Response)
}
