package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/babywise/plugin/ai/locale"
	"github.com/hrygo/babywise/plugin/ai/summary"
	apperrors "github.com/hrygo/babywise/server/internal/errors"
	"github.com/hrygo/babywise/server/service/routine"
	"github.com/hrygo/babywise/server/timezone"
	"github.com/hrygo/babywise/store"
)

// RoutineEvent is the API representation of a stored event.
type RoutineEvent struct {
	ID        int32      `json:"id"`
	UID       string     `json:"uid"`
	ThreadID  string     `json:"thread_id"`
	EventType string     `json:"event_type"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     string     `json:"notes"`
	LocalID   string     `json:"local_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateRoutineEventRequest is the body of POST /routines/events.
type CreateRoutineEventRequest struct {
	ThreadID  string     `json:"thread_id"`
	EventType string     `json:"event_type"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     string     `json:"notes"`
	LocalID   string     `json:"local_id"`
}

// UpdateRoutineEventRequest is the body of PUT /routines/events/:id. Omitted fields are kept.
type UpdateRoutineEventRequest struct {
	EventType *string    `json:"event_type"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Notes     *string    `json:"notes"`
}

// RoutineSummaryResponse carries the reconciled summary and its rendering.
type RoutineSummaryResponse struct {
	Summary *summary.Summary `json:"summary"`
	Text    string           `json:"text"`
	Locale  string           `json:"locale"`
	RTL     bool             `json:"rtl"`
}

// CreateRoutineEvent records an event.
// POST /api/v1/routines/events
func (s *APIV1Service) CreateRoutineEvent(c echo.Context) error {
	var req CreateRoutineEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	if req.StartTime.IsZero() {
		return apperrors.InvalidArgument("start_time is required")
	}

	create := &store.RoutineEvent{
		ThreadID:  req.ThreadID,
		EventType: store.RoutineEventType(req.EventType),
		StartTs:   req.StartTime.Unix(),
		Notes:     req.Notes,
		LocalID:   req.LocalID,
	}
	if req.EndTime != nil {
		if req.EndTime.Before(req.StartTime) {
			return apperrors.InvalidArgument("end_time is before start_time")
		}
		endTs := req.EndTime.Unix()
		create.EndTs = &endTs
	}

	event, err := s.RoutineService.RecordEvent(c.Request().Context(), create)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.convertRoutineEventFromStore(event))
}

// ListRoutineEvents lists a thread's events, optionally filtered by date and type.
// GET /api/v1/routines/events?thread_id=&start_date=&end_date=&event_type=
func (s *APIV1Service) ListRoutineEvents(c echo.Context) error {
	loc := s.RoutineService.Location()
	req := &routine.ListEventsRequest{
		ThreadID:  c.QueryParam("thread_id"),
		EventType: store.RoutineEventType(c.QueryParam("event_type")),
	}
	if v := c.QueryParam("start_date"); v != "" {
		start, err := timezone.ParseDateBound(v, loc, false)
		if err != nil {
			return apperrors.InvalidArgument(err.Error())
		}
		req.Start = &start
	}
	if v := c.QueryParam("end_date"); v != "" {
		end, err := timezone.ParseDateBound(v, loc, true)
		if err != nil {
			return apperrors.InvalidArgument(err.Error())
		}
		req.End = &end
	}

	events, err := s.RoutineService.ListEvents(c.Request().Context(), req)
	if err != nil {
		return err
	}
	result := make([]*RoutineEvent, 0, len(events))
	for _, event := range events {
		result = append(result, s.convertRoutineEventFromStore(event))
	}
	return c.JSON(http.StatusOK, map[string]any{"events": result})
}

// UpdateRoutineEvent changes the given fields of an event.
// PUT /api/v1/routines/events/:id
func (s *APIV1Service) UpdateRoutineEvent(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return err
	}
	var req UpdateRoutineEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}

	update := &routine.UpdateEventRequest{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	}
	if req.EventType != nil {
		eventType := store.RoutineEventType(*req.EventType)
		update.EventType = &eventType
	}

	event, err := s.RoutineService.UpdateEvent(c.Request().Context(), id, update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.convertRoutineEventFromStore(event))
}

// DeleteRoutineEvent removes an event.
// DELETE /api/v1/routines/events/:id
func (s *APIV1Service) DeleteRoutineEvent(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return err
	}
	if err := s.RoutineService.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRoutineSummary returns the summary of the current day, week or month.
// GET /api/v1/routines/summary/:thread_id?period=day|week|month&locale=
func (s *APIV1Service) GetRoutineSummary(c echo.Context) error {
	period := summary.PeriodDay
	if v := c.QueryParam("period"); v != "" {
		period = summary.Period(v)
		if period != summary.PeriodDay && period != summary.PeriodWeek && period != summary.PeriodMonth {
			return apperrors.InvalidArgument("period must be day, week or month")
		}
	}
	lang := locale.Normalize(c.QueryParam("locale"), "")

	sum, err := s.RoutineService.Summarize(c.Request().Context(), c.Param("thread_id"), period)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RoutineSummaryResponse{
		Summary: sum,
		Text:    locale.RenderSummary(sum, lang, s.RoutineService.Location()),
		Locale:  lang,
		RTL:     locale.IsRTL(lang),
	})
}

// GetLatestRoutineEvent returns the thread's most recent event of a type.
// GET /api/v1/routines/latest/:thread_id/:event_type
func (s *APIV1Service) GetLatestRoutineEvent(c echo.Context) error {
	event, err := s.RoutineService.LatestEvent(c.Request().Context(), c.Param("thread_id"), store.RoutineEventType(c.Param("event_type")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.convertRoutineEventFromStore(event))
}

// GetRoutineAnalytics returns per-day statistics.
// GET /api/v1/routines/analytics/:thread_id?days=7
func (s *APIV1Service) GetRoutineAnalytics(c echo.Context) error {
	days := 7
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return apperrors.InvalidArgument("days must be a positive integer")
		}
		days = n
	}
	analytics, err := s.RoutineService.Analytics(c.Request().Context(), c.Param("thread_id"), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analytics)
}

func parseEventID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("invalid event id")
	}
	return int32(id), nil
}

func (s *APIV1Service) convertRoutineEventFromStore(event *store.RoutineEvent) *RoutineEvent {
	loc := s.RoutineService.Location()
	result := &RoutineEvent{
		ID:        event.ID,
		UID:       event.UID,
		ThreadID:  event.ThreadID,
		EventType: string(event.EventType),
		StartTime: timezone.ToUserTimezone(event.StartTs, loc),
		Notes:     event.Notes,
		LocalID:   event.LocalID,
		CreatedAt: timezone.ToUserTimezone(event.CreatedTs, loc),
		UpdatedAt: timezone.ToUserTimezone(event.UpdatedTs, loc),
	}
	if event.EndTs != nil {
		end := timezone.ToUserTimezone(*event.EndTs, loc)
		result.EndTime = &end
	}
	return result
}
