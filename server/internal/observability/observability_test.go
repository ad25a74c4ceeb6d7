package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reqCtx := NewRequestContextWithID(logger, "req-1", "thread-1")
	reqCtx.Locale = "he"
	reqCtx.Info("message handled", slog.String(LogFieldCommand, "sleep_start"))
	reqCtx.Error("store failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "thread_id=thread-1")
	assert.Contains(t, out, "locale=he")
	assert.Contains(t, out, "command=sleep_start")
	assert.Contains(t, out, "error=boom")
}

func TestRequestContext_Context(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	detached := Logger(ctx, "t1")
	assert.NotEmpty(t, detached.RequestID)
	assert.Equal(t, "t1", detached.ThreadID)

	reqCtx := NewRequestContext(nil, "t2")
	ctx = WithRequestContext(ctx, reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)
	assert.Same(t, reqCtx, Logger(ctx, "ignored"))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Record("sleep_start", 10*time.Millisecond, nil)
	m.Record("sleep_start", 30*time.Millisecond, nil)
	m.Record("conversational", 100*time.Millisecond, errors.New("llm down"))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.RequestTotal)
	assert.Equal(t, int64(1), snap.RequestFailed)
	assert.Equal(t, CommandSnapshot{Count: 2, AverageDurationMs: 20}, snap.Commands["sleep_start"])
	assert.Equal(t, int64(1), snap.Commands["conversational"].Errors)
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)

	m.Reset()
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())
}
