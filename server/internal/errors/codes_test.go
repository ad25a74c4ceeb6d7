package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeParseFailure, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeLLMUnavailable, http.StatusServiceUnavailable},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeMalformedStoredEvent, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("disk full")
	err := StoreUnavailable(cause).WithContext("thread_id", "t1")

	assert.Equal(t, "[STORE_UNAVAILABLE] routine store unavailable: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "t1", err.Context["thread_id"])

	wrapped := fmt.Errorf("handle message: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeStoreUnavailable))
	assert.Equal(t, ErrCodeStoreUnavailable, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(cause, ErrCodeInternal))

	assert.ErrorIs(t, Timeout(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.Equal(t, "[NOT_FOUND] event 3 not found", NotFound("event 3 not found").Error())
}
