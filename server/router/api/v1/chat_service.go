package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/babywise/plugin/ai/locale"
	"github.com/hrygo/babywise/plugin/ai/router"
	apperrors "github.com/hrygo/babywise/server/internal/errors"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

// DetectCommandRequest is the body of POST /debug/detect-command.
type DetectCommandRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

// DetectCommandResponse is the classification of a message.
type DetectCommandResponse struct {
	router.Result
	IsCommand bool          `json:"is_command"`
	Domain    router.Domain `json:"domain,omitempty"`
}

// Chat answers one chat message: tracking commands are executed, anything else is advice.
// POST /api/v1/chat
func (s *APIV1Service) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	resp, err := s.RoutineService.HandleMessage(c.Request().Context(), req.ThreadID, req.Message, req.Language)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetContext returns the thread's conversation context.
// GET /api/v1/context/:thread_id
func (s *APIV1Service) GetContext(c echo.Context) error {
	conversation, err := s.RoutineService.Context(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load conversation")
	}
	return c.JSON(http.StatusOK, conversation)
}

// ResetContext clears the thread's conversation. Recorded events are kept.
// POST /api/v1/reset/:thread_id
func (s *APIV1Service) ResetContext(c echo.Context) error {
	threadID := c.Param("thread_id")
	if err := s.RoutineService.Reset(c.Request().Context(), threadID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to reset conversation")
	}
	return c.JSON(http.StatusOK, map[string]any{"thread_id": threadID, "reset": true})
}

// DetectCommand classifies a message without acting on it.
// POST /api/v1/debug/detect-command
func (s *APIV1Service) DetectCommand(c echo.Context) error {
	var req DetectCommandRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	if req.Message == "" {
		return apperrors.InvalidArgument("message is required")
	}
	result := s.RoutineService.Classify(req.Message, req.Language)
	resp := DetectCommandResponse{Result: result, IsCommand: result.IsCommand()}
	if !resp.IsCommand {
		resp.Domain = s.RoutineService.SelectDomain(req.Message)
	}
	if resp.Locale == "" {
		resp.Locale = locale.Normalize(req.Language, req.Message)
	}
	return c.JSON(http.StatusOK, resp)
}
