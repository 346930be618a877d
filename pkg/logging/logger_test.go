package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOutput collects entries for assertions.
type memoryOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (m *memoryOutput) Write(e LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryOutput) Sync() error  { return nil }
func (m *memoryOutput) Close() error { return nil }

func (m *memoryOutput) all() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.entries...)
}

func TestLoggerSeverityFiltering(t *testing.T) {
	out := &memoryOutput{}
	logger := NewLogger(Config{Severity: WARN, Outputs: []Output{out}})

	ctx := context.Background()
	logger.Debug(ctx, "debug %d", 1)
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := out.all()
	require.Len(t, entries, 2)
	assert.Equal(t, WARN, entries[0].Severity)
	assert.Equal(t, "warn", entries[0].Message)
	assert.Equal(t, ERROR, entries[1].Severity)
}

func TestLoggerFormatsMessage(t *testing.T) {
	out := &memoryOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	logger.Info(context.Background(), "run %s: %d patterns", "r1", 4)

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "run r1: 4 patterns", entries[0].Message)
	assert.NotEmpty(t, entries[0].File)
}

func TestLoggerContextRunID(t *testing.T) {
	out := &memoryOutput{}
	logger := NewLogger(Config{Severity: INFO, Outputs: []Output{out}})

	ctx := WithRunID(context.Background(), "run-42")
	logger.Info(ctx, "starting")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].Fields["run_id"])
}

func TestLoggerDefaultFields(t *testing.T) {
	out := &memoryOutput{}
	logger := NewLogger(Config{
		Severity:      INFO,
		Outputs:       []Output{out},
		DefaultFields: map[string]interface{}{"component": "pipeline"},
	})

	logger.Info(context.Background(), "hello")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].Fields["component"])
}

func TestLoggerContextModelID(t *testing.T) {
	out := &memoryOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	ctx := WithModelID(context.Background(), "claude-sonnet-4-20250514")
	logger.Debug(ctx, "calling")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "claude-sonnet-4-20250514", entries[0].ModelID)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, DEBUG, ParseSeverity("DEBUG"))
	assert.Equal(t, WARN, ParseSeverity("WARN"))
	assert.Equal(t, FATAL, ParseSeverity("FATAL"))
	// Unknown strings default to INFO.
	assert.Equal(t, INFO, ParseSeverity("verbose"))
	assert.Equal(t, INFO, ParseSeverity(""))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "ERROR", ERROR.String())
}

func TestSetLogger(t *testing.T) {
	out := &memoryOutput{}
	custom := NewLogger(Config{Severity: INFO, Outputs: []Output{out}})

	prev := GetLogger()
	SetLogger(custom)
	defer SetLogger(prev)

	GetLogger().Info(context.Background(), "through global")
	require.Len(t, out.all(), 1)
}
