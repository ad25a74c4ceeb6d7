package routine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/babywise/plugin/ai/advice"
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

const (
	// RecentEventsLimit is how many events the recent listing returns.
	RecentEventsLimit = 50
	// MaxAnalyticsDays caps the analytics range.
	MaxAnalyticsDays = 90
)

// Config holds the service settings.
type Config struct {
	Location *time.Location
	// DefaultLocale answers messages that name no locale; Hebrew script still selects Hebrew.
	DefaultLocale   string
	SummaryTTL      time.Duration
	RecentEventsTTL time.Duration
}

// Service implements chat dispatch and routine tracking.
type Service struct {
	store      Store
	cache      cache.Cache
	classifier router.RouterService
	advisor    advice.AdviceGenerator
	sessions   *session.SessionRecovery
	metrics    *observability.Metrics

	loc             *time.Location
	defaultLocale   string
	summaryTTL      time.Duration
	recentEventsTTL time.Duration
	now             func() time.Time

	// group coalesces concurrent computations of the same summary.
	group singleflight.Group
}

// NewService creates a routine service.
func NewService(st Store, c cache.Cache, classifier router.RouterService, advisor advice.AdviceGenerator, sessions *session.SessionRecovery, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = cache.DefaultSummaryTTL
	}
	if cfg.RecentEventsTTL <= 0 {
		cfg.RecentEventsTTL = cache.DefaultRecentEventsTTL
	}
	if advisor == nil {
		advisor = advice.FallbackGenerator{}
	}
	return &Service{
		store:           st,
		cache:           c,
		classifier:      classifier,
		advisor:         advisor,
		sessions:        sessions,
		metrics:         observability.GlobalMetrics(),
		loc:             cfg.Location,
		defaultLocale:   cfg.DefaultLocale,
		summaryTTL:      cfg.SummaryTTL,
		recentEventsTTL: cfg.RecentEventsTTL,
		now:             time.Now,
	}
}

// Location is the zone day boundaries are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Classify exposes the classifier, for debugging endpoints.
func (s *Service) Classify(message, requestedLocale string) router.Result {
	if strings.TrimSpace(requestedLocale) == "" {
		requestedLocale = s.defaultLocale
	}
	return s.classifier.ClassifyAt(message, requestedLocale, s.now().In(s.loc))
}

// SelectDomain picks the advice domain of a conversational message.
func (s *Service) SelectDomain(message string) router.Domain {
	return s.classifier.SelectDomain(message)
}

// HandleMessage classifies a chat message and answers it: tracking commands
// are recorded or summarized, anything else goes to the advice generator.
func (s *Service) HandleMessage(ctx context.Context, threadID, message, requestedLocale string) (*ChatResponse, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, apperrors.InvalidArgument("thread_id is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.InvalidArgument("message is required")
	}

	start := time.Now()
	result := s.Classify(message, requestedLocale)
	reqLog := observability.Logger(ctx, threadID)
	reqLog.Locale = result.Locale

	outcome := string(result.Subtype)
	if !result.IsCommand() {
		outcome = string(result.Kind)
	}

	resp, err := s.dispatch(ctx, threadID, message, result)
	s.metrics.Record(outcome, time.Since(start), err)
	if err != nil {
		reqLog.Error("failed to handle message", err,
			slog.String(observability.LogFieldCommand, outcome),
			slog.String(observability.LogFieldMessage, timeout.Truncate(message)),
			slog.String(observability.LogFieldErrorCode, string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))))
		return nil, err
	}
	reqLog.Info("message handled",
		slog.String(observability.LogFieldCommand, outcome),
		slog.Int(observability.LogFieldMessageLen, len(message)),
		slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()))
	return resp, nil
}

func (s *Service) dispatch(ctx context.Context, threadID, message string, result router.Result) (*ChatResponse, error) {
	lang := result.Locale
	resp := &ChatResponse{Locale: lang, RTL: locale.IsRTL(lang)}
	if result.IsCommand() {
		resp.Command = &result
	}

	switch {
	case !result.IsCommand():
		return s.advise(ctx, threadID, message, result, resp)

	case result.Subtype == router.SubtypeHelp:
		resp.Response = locale.Help(lang)
		return resp, nil

	case result.Subtype == router.SubtypeSummary:
		sum, err := s.Summarize(ctx, threadID, result.Period)
		if err != nil {
			return nil, err
		}
		resp.Summary = sum
		resp.Response = locale.RenderSummary(sum, lang, s.loc)
		return resp, nil

	default:
		eventType, ok := result.EventType()
		if !ok {
			return nil, apperrors.Wrap(nil, apperrors.ErrCodeInternal, fmt.Sprintf("unknown command %q", result.Subtype))
		}
		event, err := s.RecordEvent(ctx, &store.RoutineEvent{
			ThreadID:  threadID,
			EventType: eventType,
			StartTs:   result.Time.Unix(),
			Notes:     message,
		})
		if err != nil {
			return nil, err
		}
		resp.Event = event
		resp.Response = locale.Confirmation(eventType, event.StartTime().In(s.loc), lang)
		return resp, nil
	}
}

// advise answers a conversational message with the thread's conversation as context.
func (s *Service) advise(ctx context.Context, threadID, message string, result router.Result, resp *ChatResponse) (*ChatResponse, error) {
	domain := s.classifier.SelectDomain(message)
	conversation, err := s.sessions.Update(ctx, threadID, result.Locale, func(c *session.ConversationContext) {
		c.Domain = string(domain)
		c.Metadata = advice.MergeFacts(c.Metadata, message)
		c.Messages = append(c.Messages, session.Message{Role: session.RoleUser, Content: message})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load conversation")
	}

	reply, err := s.advisor.Generate(ctx, conversation)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		if !errors.Is(err, advice.ErrUnavailable) {
			return nil, apperrors.LLMUnavailable(err)
		}
		// The user still gets an answer; the apology is not kept in the history.
		resp.Response = locale.AdviceUnavailable(result.Locale)
		resp.ErrorCode = string(apperrors.ErrCodeLLMUnavailable)
		return resp, nil
	}

	if _, err := s.sessions.AppendMessages(ctx, threadID, result.Locale, session.Message{Role: session.RoleAssistant, Content: reply}); err != nil {
		slog.Warn("failed to save assistant reply", "thread_id", threadID, "error", err)
	}
	resp.Response = reply
	return resp, nil
}

// RecordEvent validates and stores an event. Retried creates carrying the
// same local id return the stored event.
func (s *Service) RecordEvent(ctx context.Context, event *store.RoutineEvent) (*store.RoutineEvent, error) {
	if strings.TrimSpace(event.ThreadID) == "" {
		return nil, apperrors.InvalidArgument("thread_id is required")
	}
	if !event.EventType.IsValid() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid event_type %q", event.EventType))
	}
	if event.StartTs <= 0 {
		return nil, apperrors.InvalidArgument("start_time is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	created, err := s.store.CreateRoutineEvent(ctx, event)
	if err != nil {
		return nil, storeError(err)
	}
	observability.Logger(ctx, event.ThreadID).Info("routine event recorded",
		slog.String(observability.LogFieldEventType, string(created.EventType)),
		slog.Int("id", int(created.ID)))
	return created, nil
}

// ListEvents lists a thread's events. Unfiltered listings return the most
// recent events, newest first, and are cached.
func (s *Service) ListEvents(ctx context.Context, req *ListEventsRequest) ([]*store.RoutineEvent, error) {
	if strings.TrimSpace(req.ThreadID) == "" {
		return nil, apperrors.InvalidArgument("thread_id is required")
	}
	if req.EventType != "" && !req.EventType.IsValid() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid event_type %q", req.EventType))
	}
	if req.IsRecent() {
		return s.recentEvents(ctx, req.ThreadID)
	}

	find := &store.FindRoutineEvent{ThreadID: &req.ThreadID}
	if req.Start != nil {
		ts := req.Start.Unix()
		find.StartTsAfter = &ts
	}
	if req.End != nil {
		ts := req.End.Unix()
		find.StartTsBefore = &ts
	}
	if req.EventType != "" {
		find.EventType = &req.EventType
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	events, err := s.store.ListRoutineEvents(ctx, find)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}

func (s *Service) recentEvents(ctx context.Context, threadID string) ([]*store.RoutineEvent, error) {
	key := cache.RecentEventsKey(threadID)
	if data, ok := s.cache.Get(ctx, key); ok {
		var events []*store.RoutineEvent
		if err := json.Unmarshal(data, &events); err == nil {
			return events, nil
		}
	}

	limit := RecentEventsLimit
	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	gen := s.store.ThreadGeneration(threadID)
	events, err := s.store.ListRoutineEvents(ctx, &store.FindRoutineEvent{
		ThreadID:         &threadID,
		OrderByStartDesc: true,
		Limit:            &limit,
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.cacheThreadValue(ctx, threadID, gen, key, events, s.recentEventsTTL)
	return events, nil
}

// UpdateEvent changes the given fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, id int32, req *UpdateEventRequest) (*store.RoutineEvent, error) {
	update := &store.UpdateRoutineEvent{ID: id, EventType: req.EventType, Notes: req.Notes}
	if req.EventType != nil && !req.EventType.IsValid() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid event_type %q", *req.EventType))
	}
	if req.StartTime != nil {
		ts := req.StartTime.Unix()
		update.StartTs = &ts
	}
	if req.EndTime != nil {
		ts := req.EndTime.Unix()
		update.EndTs = &ts
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	event, err := s.store.UpdateRoutineEvent(ctx, update)
	if err != nil {
		return nil, storeError(err)
	}
	return event, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id int32) error {
	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	if err := s.store.DeleteRoutineEvent(ctx, &store.DeleteRoutineEvent{ID: id}); err != nil {
		return storeError(err)
	}
	return nil
}

// LatestEvent returns the thread's most recent event of a type.
func (s *Service) LatestEvent(ctx context.Context, threadID string, eventType store.RoutineEventType) (*store.RoutineEvent, error) {
	if !eventType.IsValid() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid event_type %q", eventType))
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	event, err := s.store.GetLatestRoutineEvent(ctx, threadID, eventType)
	if err != nil {
		return nil, storeError(err)
	}
	if event == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("no %s event for thread %s", eventType, threadID))
	}
	return event, nil
}

// Summarize reconciles the thread's events over the period containing now.
// Results are cached per thread, period and window until the thread changes.
func (s *Service) Summarize(ctx context.Context, threadID string, period summary.Period) (*summary.Summary, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, apperrors.InvalidArgument("thread_id is required")
	}
	start, end := summary.Window(period, s.now().In(s.loc))
	key := cache.SummaryKey(threadID, string(period), start.Format(time.DateOnly))

	if data, ok := s.cache.Get(ctx, key); ok {
		var cached summary.Summary
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout.StoreTimeout)
		defer cancel()
		gen := s.store.ThreadGeneration(threadID)
		events, err := s.store.QueryRoutineEvents(queryCtx, threadID, start, end)
		if err != nil {
			return nil, storeError(err)
		}
		sum := summary.ComputeWindow(threadID, events, period, start, end)
		s.cacheThreadValue(queryCtx, threadID, gen, key, sum, s.summaryTTL)
		return sum, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*summary.Summary), nil
}

// Analytics reports per-day sleep and feeding statistics for the last days.
func (s *Service) Analytics(ctx context.Context, threadID string, days int) (*summary.Analytics, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, apperrors.InvalidArgument("thread_id is required")
	}
	if days <= 0 {
		days = 7
	}
	if days > MaxAnalyticsDays {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("days must be at most %d", MaxAnalyticsDays))
	}

	now := s.now().In(s.loc)
	today, _ := summary.Window(summary.PeriodDay, now)
	start, end := today.AddDate(0, 0, -(days-1)), today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	types := []store.RoutineEventType{store.RoutineEventSleepStart, store.RoutineEventSleepEnd, store.RoutineEventFeedStart}
	results := make([][]*store.RoutineEvent, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, eventType := range types {
		g.Go(func() error {
			events, err := s.listByType(gctx, threadID, eventType, start, end)
			results[i] = events
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeError(err)
	}

	sleepEvents := append(results[0], results[1]...)
	return summary.ComputeAnalytics(threadID, sleepEvents, results[2], days, now), nil
}

func (s *Service) listByType(ctx context.Context, threadID string, eventType store.RoutineEventType, start, end time.Time) ([]*store.RoutineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	startTs, endTs := start.Unix(), end.Unix()
	return s.store.ListRoutineEvents(ctx, &store.FindRoutineEvent{
		ThreadID:      &threadID,
		EventType:     &eventType,
		StartTsAfter:  &startTs,
		StartTsBefore: &endTs,
	})
}

// Context returns the thread's conversation context.
func (s *Service) Context(ctx context.Context, threadID string) (*session.ConversationContext, error) {
	return s.sessions.RecoverSession(ctx, threadID, "")
}

// Reset drops the thread's conversation context. Recorded events are kept.
func (s *Service) Reset(ctx context.Context, threadID string) error {
	return s.sessions.ResetSession(ctx, threadID)
}

// cacheThreadValue caches v only while the thread is still at generation gen.
// A write racing the Set is caught by the second check and the key dropped.
func (s *Service) cacheThreadValue(ctx context.Context, threadID string, gen uint64, key string, v any, ttl time.Duration) {
	if s.store.ThreadGeneration(threadID) != gen {
		return
	}
	s.cacheSet(ctx, key, v, ttl)
	if s.store.ThreadGeneration(threadID) != gen {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			slog.Warn("failed to drop stale cache entry", "key", key, "error", err)
		}
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal cache value", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		slog.Warn("failed to set cache", "key", key, "error", err)
	}
}

// storeError maps store failures to API errors.
func storeError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("routine event not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return contextError(err)
	default:
		return apperrors.StoreUnavailable(err)
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}
	return apperrors.ContextCanceled(err)
}
