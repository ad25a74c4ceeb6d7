package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/babywise/server/internal/errors"
	"github.com/hrygo/babywise/server/internal/observability"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error code and a human readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPErrorHandler renders handler errors as ErrorResponse with the status of their code.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := toErrorResponse(err)
	reqCtx := observability.Logger(c.Request().Context(), "")
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, detail.Code),
		slog.Int("status", status),
		slog.String("path", c.Path()),
	}
	if status >= http.StatusInternalServerError {
		reqCtx.Error("request failed", err, attrs...)
	} else {
		reqCtx.Debug("request rejected", append(attrs, slog.String("error", err.Error()))...)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Error: detail})
	}
	if writeErr != nil {
		slog.Warn("failed to write error response", "error", writeErr)
	}
}

func toErrorResponse(err error) (int, ErrorDetail) {
	if appErr, ok := apperrors.As(err); ok {
		return apperrors.HTTPStatus(appErr.Code), ErrorDetail{Code: string(appErr.Code), Message: appErr.Message}
	}
	if he, ok := err.(*echo.HTTPError); ok {
		code := apperrors.ErrCodeInternal
		switch {
		case he.Code == http.StatusNotFound:
			code = apperrors.ErrCodeNotFound
		case he.Code == http.StatusTooManyRequests:
			code = apperrors.ErrCodeRateLimitExceeded
		case he.Code < http.StatusInternalServerError:
			code = apperrors.ErrCodeInvalidArgument
		}
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return he.Code, ErrorDetail{Code: string(code), Message: message}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: string(apperrors.ErrCodeInternal), Message: "internal error"}
}
