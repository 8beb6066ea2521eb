package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(level LogLevel) (*SimLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestSimLogger_AttachesContext(t *testing.T) {
	l, buf := captureLogger(LogLevelInfo)
	l.WithComponent("engine").WithSimulation("sim-1").WithRound(3).Info("round staged")

	entry := lastEntry(t, buf)
	assert.Equal(t, "round staged", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "sim-1", entry["simulation_id"])
	assert.Equal(t, float64(3), entry["round"])
}

func TestSimLogger_LevelFiltering(t *testing.T) {
	l, buf := captureLogger(LogLevelWarn)
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestSimLogger_FormatsArgs(t *testing.T) {
	l, buf := captureLogger(LogLevelInfo)
	l.Info("actor %s decided in %d ms", "actor-1", 42)
	entry := lastEntry(t, buf)
	assert.Equal(t, "actor actor-1 decided in 42 ms", entry["msg"])
}

func TestSimLogger_LogOracleCall(t *testing.T) {
	l, buf := captureLogger(LogLevelInfo)

	l.LogOracleCall("decision", "actor-1", 120*time.Millisecond, 1, nil)
	entry := lastEntry(t, buf)
	assert.Equal(t, "Oracle call completed", entry["msg"])
	assert.Equal(t, true, entry["success"])
	assert.Equal(t, "actor-1", entry["actor_id"])

	l.LogOracleCall("world", "", time.Second, 2, errors.New("boom"))
	entry = lastEntry(t, buf)
	assert.Equal(t, "Oracle call failed", entry["msg"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNop_Discards(t *testing.T) {
	// Must not panic and must not write anywhere observable.
	Nop().WithSimulation("sim-1").Error("nothing to see")
}
