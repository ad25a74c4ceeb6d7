package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/offline"
	"github.com/hrygo/babywise/plugin/ai/router"
)

func TestClassifyCommand(t *testing.T) {
	cmd := newClassifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--at", "2026-01-27 21:00", "fell", "asleep", "at", "8:30pm"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var result struct {
		Kind      string `json:"kind"`
		Subtype   string `json:"subtype"`
		IsCommand bool   `json:"is_command"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.IsCommand)
	assert.Equal(t, "sleep_start", result.Subtype)
}

func TestChatREPL_Offline(t *testing.T) {
	buffer := offline.NewBuffer()
	// Nothing listens on this port, so every server call fails.
	remote := offline.NewHTTPRemote("http://127.0.0.1:1")
	syncer := offline.NewSyncer(buffer, remote, time.Hour, time.Hour)
	client := offline.NewClient(router.NewClassifier(aitime.NewParser(time.UTC)), buffer, remote, syncer, time.UTC)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("fell asleep at 8:30pm\n/status\n/sync\n/quit\n"))
	cmd.SetContext(context.Background())

	require.NoError(t, runREPL(cmd, client, syncer, buffer, "t1", "en"))
	text := out.String()
	assert.Contains(t, text, "Recorded sleep start at 8:30 PM")
	assert.Contains(t, text, "offline, 1 of 1 entries waiting to sync")
	assert.Contains(t, text, "synced 0, server unavailable")
	assert.Equal(t, 1, len(buffer.Pending()))
}
