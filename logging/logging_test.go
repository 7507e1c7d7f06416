package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLoggerFormatsFieldsSorted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	logger.WithFields(Fields{"component": "test", "b": 2}).Info("hello", Fields{"a": 1})

	line := stdout.String()
	assert.Contains(t, line, "[INFO] hello a=1 b=2 component=test")
	assert.Empty(t, stderr.String())
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	logger.Debug("hidden")
	logger.Warn("careful")
	logger.Error(errors.New("boom"), "failed", Fields{"op": "read"})

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stderr.String(), "[WARN] careful")
	assert.Contains(t, stderr.String(), "[ERROR] failed: boom op=read")

	logger.SetLevel(DebugLevel)
	logger.Debug("shown")
	assert.Contains(t, stdout.String(), "[DEBUG] shown")
}

func TestDefaultLoggerFatalExits(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("bad"), "giving up")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[FATAL] giving up: bad")
}

func TestWithContext(t *testing.T) {
	var stdout bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stdout, false)

	ctx := ContextWithFields(context.Background(), Fields{"session_id": "s1"})
	logger.WithContext(ctx).Info("tick")
	logger.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "session_id=s1")
	assert.NotContains(t, lines[1], "session_id")
}

func TestGlobalLogger(t *testing.T) {
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	var stdout bytes.Buffer
	SetGlobalLogger(NewDefaultLoggerWithWriters(&stdout, &stdout, true))
	DisableColors()
	WithFields(Fields{"component": "global"}).Info("hi")
	assert.Contains(t, stdout.String(), "[INFO] hi component=global")

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())
}
