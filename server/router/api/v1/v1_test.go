package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/plugin/ai/advice"
	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/offline"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/plugin/ai/summary"
	ratelimit "github.com/hrygo/babywise/server/middleware"
	"github.com/hrygo/babywise/server/service/routine"
	"github.com/hrygo/babywise/server/timezone"
	"github.com/hrygo/babywise/store"
	teststore "github.com/hrygo/babywise/store/test"
)

type testAdvisor struct {
	reply string
	err   error
}

func (a *testAdvisor) Generate(context.Context, *session.ConversationContext) (string, error) {
	return a.reply, a.err
}

func newTestAPI(t *testing.T, advisor advice.AdviceGenerator, limiter *ratelimit.RateLimiter) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)

	sessions := session.NewSessionRecovery(session.NewSessionStore(ts.Cache(), time.Hour))
	classifier := router.NewClassifier(aitime.NewParser(time.UTC))
	svc := routine.NewService(ts, ts.Cache(), classifier, advisor, sessions, routine.Config{Location: time.UTC})

	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{PerSecond: 1000, Burst: 1000})
	}
	api := NewAPIV1Service(&profile.Profile{Mode: "dev", Version: "test"}, svc, limiter)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	api.RegisterRoutes(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestAPI(t, nil, nil)
	rec := doJSON(t, e, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestRoutineEvents(t *testing.T) {
	e := newTestAPI(t, nil, nil)
	start := time.Date(2026, 1, 27, 13, 0, 0, 0, time.UTC)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", CreateRoutineEventRequest{
		ThreadID: "t1", EventType: "sleep_start", StartTime: start, Notes: "nap", LocalID: "local-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RoutineEvent](t, rec)
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.UID)
	assert.True(t, created.StartTime.Equal(start))

	t.Run("retry with the same local id returns the stored event", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", CreateRoutineEventRequest{
			ThreadID: "t1", EventType: "sleep_start", StartTime: start, LocalID: "local-1",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, created.ID, decode[RoutineEvent](t, rec).ID)
	})

	t.Run("invalid event type", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", CreateRoutineEventRequest{
			ThreadID: "t1", EventType: "diaper", StartTime: start,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decode[ErrorResponse](t, rec).Error.Code)
	})

	t.Run("missing start time", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", map[string]string{"thread_id": "t1", "event_type": "sleep_start"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list by date and type", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", CreateRoutineEventRequest{
			ThreadID: "t1", EventType: "feed_start", StartTime: start.AddDate(0, 0, 1),
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/events?thread_id=t1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		all := decode[map[string][]RoutineEvent](t, rec)["events"]
		assert.Len(t, all, 2)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/events?thread_id=t1&start_date=2026-01-27&end_date=2026-01-27", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		day := decode[map[string][]RoutineEvent](t, rec)["events"]
		require.Len(t, day, 1)
		assert.Equal(t, "sleep_start", day[0].EventType)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/events?thread_id=t1&event_type=feed_start", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[map[string][]RoutineEvent](t, rec)["events"], 1)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/events?thread_id=t1&start_date=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		notes := "long nap"
		end := start.Add(2 * time.Hour)
		rec := doJSON(t, e, http.MethodPut, fmt.Sprintf("/api/v1/routines/events/%d", created.ID), UpdateRoutineEventRequest{Notes: &notes, EndTime: &end})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[RoutineEvent](t, rec)
		assert.Equal(t, "long nap", updated.Notes)
		require.NotNil(t, updated.EndTime)
		assert.True(t, updated.EndTime.Equal(end))
	})

	t.Run("latest", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/v1/routines/latest/t1/sleep_start", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, decode[RoutineEvent](t, rec).ID)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/latest/t1/feed_end", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, rec).Error.Code)
	})

	t.Run("delete", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/routines/events/%d", created.ID)
		rec := doJSON(t, e, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, e, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doJSON(t, e, http.MethodDelete, "/api/v1/routines/events/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoutineSummary(t *testing.T) {
	e := newTestAPI(t, nil, nil)
	today := timezone.StartOfDay(time.Now(), time.UTC)

	for _, ev := range []CreateRoutineEventRequest{
		{ThreadID: "t1", EventType: "sleep_start", StartTime: today.Add(10 * time.Minute)},
		{ThreadID: "t1", EventType: "sleep_end", StartTime: today.Add(70 * time.Minute)},
		{ThreadID: "t1", EventType: "feed_start", StartTime: today.Add(80 * time.Minute)},
	} {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/routines/events", ev)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, e, http.MethodGet, "/api/v1/routines/summary/t1?period=day&locale=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RoutineSummaryResponse](t, rec)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 60, resp.Summary.Sleep.TotalDurationMinutes)
	assert.Equal(t, 1, resp.Summary.Feeding.Count)
	assert.Contains(t, resp.Text, "1h 0m")
	assert.False(t, resp.RTL)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/summary/t1?locale=he-IL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[RoutineSummaryResponse](t, rec)
	assert.Equal(t, "he", resp.Locale)
	assert.True(t, resp.RTL)
	assert.Contains(t, resp.Text, "1ש 0ד")

	rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/summary/t1?period=year", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/analytics/t1?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	analytics := decode[summary.Analytics](t, rec)
	require.Len(t, analytics.Days, 3)
	assert.Equal(t, 60, analytics.Days[2].SleepMinutes)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/routines/analytics/t1?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat(t *testing.T) {
	advisor := &testAdvisor{reply: "Try a consistent bedtime routine."}
	e := newTestAPI(t, advisor, nil)

	t.Run("tracking command", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t1", Message: "fell asleep at 8:30pm", Language: "en"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[routine.ChatResponse](t, rec)
		assert.Equal(t, "Recorded sleep start at 8:30 PM", resp.Response)
		require.NotNil(t, resp.Command)
		assert.Equal(t, router.SubtypeSleepStart, resp.Command.Subtype)
	})

	t.Run("hebrew", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t1", Message: "התעורר ב-06:15"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[routine.ChatResponse](t, rec)
		assert.Equal(t, "רשמתי שהתינוק התעורר ב-06:15", resp.Response)
		assert.Equal(t, "he", resp.Locale)
		assert.True(t, resp.RTL)
	})

	t.Run("conversational", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t1", Message: "how do I get my baby to sleep longer?", Language: "en"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[routine.ChatResponse](t, rec)
		assert.Equal(t, advisor.reply, resp.Response)
		assert.Nil(t, resp.Command)

		rec = doJSON(t, e, http.MethodGet, "/api/v1/context/t1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		conversation := decode[session.ConversationContext](t, rec)
		assert.Len(t, conversation.Messages, 2)

		rec = doJSON(t, e, http.MethodPost, "/api/v1/reset/t1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = doJSON(t, e, http.MethodGet, "/api/v1/context/t1", nil)
		assert.Empty(t, decode[session.ConversationContext](t, rec).Messages)
	})

	t.Run("advice unavailable", func(t *testing.T) {
		down := newTestAPI(t, &testAdvisor{err: advice.ErrUnavailable}, nil)
		rec := doJSON(t, down, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t1", Message: "is it normal to nap so much?"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[routine.ChatResponse](t, rec)
		assert.Equal(t, "LLM_UNAVAILABLE", resp.ErrorCode)
		assert.NotEmpty(t, resp.Response)
	})

	t.Run("missing message", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t1"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decode[ErrorResponse](t, rec).Error.Code)
	})
}

func TestDetectCommand(t *testing.T) {
	e := newTestAPI(t, nil, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/debug/detect-command", DetectCommandRequest{Message: "weekly summary"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DetectCommandResponse](t, rec)
	assert.True(t, resp.IsCommand)
	assert.Equal(t, router.SubtypeSummary, resp.Subtype)
	assert.Equal(t, summary.PeriodWeek, resp.Period)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/debug/detect-command", DetectCommandRequest{Message: "when should we start solids?"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[DetectCommandResponse](t, rec)
	assert.False(t, resp.IsCommand)
	assert.Equal(t, router.DomainFeeding, resp.Domain)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{PerSecond: 0.001, Burst: 2})
	e := newTestAPI(t, nil, limiter)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, e, http.MethodGet, "/api/v1/routines/summary/t1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doJSON(t, e, http.MethodGet, "/api/v1/routines/summary/t1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode[ErrorResponse](t, rec).Error.Code)

	// The thread in a chat body is its own bucket.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/chat", ChatRequest{ThreadID: "t2", Message: "help"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Health is never limited.
	rec = doJSON(t, e, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOfflineClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	e := newTestAPI(t, &testAdvisor{reply: "Offer a feed before bed."}, nil)
	srv := httptest.NewServer(e)
	defer srv.Close()

	remote := offline.NewHTTPRemote(srv.URL)
	require.True(t, remote.Healthy(ctx))

	today := timezone.StartOfDay(time.Now(), time.UTC)
	buffer := offline.NewBuffer()
	require.NoError(t, buffer.Add(&offline.Entry{ThreadID: "t1", EventType: store.RoutineEventSleepStart, StartTime: today.Add(time.Hour), CapturedAt: time.Now()}))
	require.NoError(t, buffer.Add(&offline.Entry{ThreadID: "t1", EventType: store.RoutineEventSleepEnd, StartTime: today.Add(150 * time.Minute), CapturedAt: time.Now()}))
	require.NoError(t, buffer.Add(&offline.Entry{ThreadID: "t1", EventType: "diaper", StartTime: today, CapturedAt: time.Now()}))

	syncer := offline.NewSyncer(buffer, remote, time.Minute, time.Minute)
	synced, err := syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Empty(t, buffer.Pending())

	// A replayed entry maps to the stored event.
	entry := &offline.Entry{LocalID: "replay", ThreadID: "t1", EventType: store.RoutineEventFeedStart, StartTime: today.Add(3 * time.Hour)}
	first, err := remote.CreateEvent(ctx, entry)
	require.NoError(t, err)
	second, err := remote.CreateEvent(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sum, err := remote.Summary(ctx, "t1", summary.PeriodDay, "en")
	require.NoError(t, err)
	assert.Equal(t, 90, sum.Summary.Sleep.TotalDurationMinutes)
	assert.Equal(t, 1, sum.Summary.Feeding.Count)
	assert.Contains(t, sum.Text, "1h 30m")

	reply, err := remote.Chat(ctx, "t1", "any tips for bedtime?", "en")
	require.NoError(t, err)
	assert.Equal(t, "Offer a feed before bed.", reply)

	_, err = remote.CreateEvent(ctx, &offline.Entry{ThreadID: "t1", EventType: "bath", StartTime: today})
	assert.True(t, errors.Is(err, offline.ErrRejected))

	srv.Close()
	assert.False(t, remote.Healthy(ctx))
	_, err = remote.CreateEvent(ctx, entry)
	assert.True(t, errors.Is(err, offline.ErrStoreUnavailable))
}
