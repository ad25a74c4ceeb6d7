// Package v1 serves the babywise REST API under /api/v1.
package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/server/internal/observability"
	ratelimit "github.com/hrygo/babywise/server/middleware"
	"github.com/hrygo/babywise/server/service/routine"
)

// maxThreadPeekBytes bounds how much of a JSON body is read to find its thread_id.
const maxThreadPeekBytes = 64 << 10

// APIV1Service holds the dependencies of the v1 handlers.
type APIV1Service struct {
	Profile        *profile.Profile
	RoutineService *routine.Service
	RateLimiter    *ratelimit.RateLimiter
	Metrics        *observability.Metrics

	startTime time.Time
}

// NewAPIV1Service creates the v1 API. A nil limiter is built from the profile.
func NewAPIV1Service(profile *profile.Profile, routineService *routine.Service, limiter *ratelimit.RateLimiter) *APIV1Service {
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{
			PerSecond: profile.RateLimitPerSecond,
			Burst:     profile.RateLimitBurst,
		})
	}
	return &APIV1Service{
		Profile:        profile,
		RoutineService: routineService,
		RateLimiter:    limiter,
		Metrics:        observability.GlobalMetrics(),
		startTime:      time.Now(),
	}
}

// RegisterRoutes mounts the v1 handlers on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, HeaderThreadID},
	}), s.requestContext)

	api.GET("/health", s.Health)
	api.GET("/system/metrics", s.GetMetricsOverview)

	limited := api.Group("", s.RateLimiter.Middleware(threadKey))

	limited.POST("/routines/events", s.CreateRoutineEvent)
	limited.GET("/routines/events", s.ListRoutineEvents)
	limited.PUT("/routines/events/:id", s.UpdateRoutineEvent)
	limited.DELETE("/routines/events/:id", s.DeleteRoutineEvent)
	limited.GET("/routines/summary/:thread_id", s.GetRoutineSummary)
	limited.GET("/routines/latest/:thread_id/:event_type", s.GetLatestRoutineEvent)
	limited.GET("/routines/analytics/:thread_id", s.GetRoutineAnalytics)

	limited.POST("/chat", s.Chat)
	limited.GET("/context/:thread_id", s.GetContext)
	limited.POST("/reset/:thread_id", s.ResetContext)
	limited.POST("/debug/detect-command", s.DetectCommand)
}

// HeaderThreadID lets clients name their thread on requests without one in the path or body.
const HeaderThreadID = "X-Thread-ID"

// requestContext attaches a RequestContext carrying the request id and thread to the request.
func (s *APIV1Service) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		reqCtx := observability.NewRequestContextWithID(slog.Default(), requestID, threadKey(c))
		c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), reqCtx)))

		err := next(c)
		reqCtx.Debug("request completed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().Status),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return err
	}
}

// threadKey finds the thread a request belongs to: the path, then the query,
// then the X-Thread-ID header, then a JSON body's thread_id.
func threadKey(c echo.Context) string {
	if id := c.Param("thread_id"); id != "" {
		return id
	}
	if id := c.QueryParam("thread_id"); id != "" {
		return id
	}
	if id := c.Request().Header.Get(HeaderThreadID); id != "" {
		return id
	}
	return peekThreadID(c.Request())
}

// peekThreadID reads the thread_id of a JSON body and restores the body for the handler.
func peekThreadID(req *http.Request) string {
	if req.Body == nil || req.Method == http.MethodGet {
		return ""
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, maxThreadPeekBytes))
	req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), req.Body))
	if err != nil {
		return ""
	}
	var body struct {
		ThreadID string `json:"thread_id"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.ThreadID
}
