package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshLogger_KeyValuesAndScope(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("orchestrator").
		WithRequest("req-1")

	l.Info("turn.start", "mode", "web")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "turn.start", rec["msg"])
	assert.Equal(t, "orchestrator", rec["component"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "web", rec["mode"])
}

func TestMeshLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestMeshLogger_LogTurn(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	l.LogTurn("web", "stop", 2, 3, time.Second, nil)
	assert.Contains(t, buf.String(), `"step_count":2`)
	assert.Contains(t, buf.String(), "Turn completed")

	buf.Reset()
	l.LogToolCall("web_search", time.Millisecond, false, errors.New("boom"))
	assert.Contains(t, buf.String(), "Tool execution failed")
}

func TestWithContext_DoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	_ = base.WithContext("tool", "x")
	base.Info("plain")
	assert.False(t, strings.Contains(buf.String(), `"tool"`))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("nonsense"))
}
