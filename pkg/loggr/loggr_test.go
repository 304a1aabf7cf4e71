package loggr

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelDebug, "test-app"))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Log(context.Background(), LevelTrace, "trace should not appear")

	logOutput := buf.String()
	lines := strings.Split(strings.TrimSpace(logOutput), "\n")

	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "DEBUG")
	assert.Contains(t, lines[0], "debug message")
	assert.Contains(t, lines[0], "[test-app]")
	assert.Contains(t, lines[1], "INFO")
	assert.Contains(t, lines[1], "info message")
	assert.NotContains(t, logOutput, "trace should not appear")
}

func TestHandlerTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelTrace, "app"))

	logger.Log(context.Background(), LevelTrace, "input buffer", slog.Int("size", 42))
	assert.Contains(t, buf.String(), "-- TRACE   -- input buffer size=42")
}

func TestHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "app")).
		With(slog.String("module", "element")).
		WithGroup("req")

	logger.Warn("cannot forward", slog.String("err", "broken pipe"), slog.Group("g", slog.Int("n", 1)))

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "WARNING")
	assert.Contains(t, line, "module=element")
	assert.Contains(t, line, `req.err="broken pipe"`)
	assert.Contains(t, line, "req.g.n=1")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "TRACE", LevelLabel(LevelTrace))
	assert.Equal(t, "DEBUG", LevelLabel(slog.LevelDebug))
	assert.Equal(t, "INFO", LevelLabel(slog.LevelInfo))
	assert.Equal(t, "WARNING", LevelLabel(slog.LevelWarn))
	assert.Equal(t, "ERROR", LevelLabel(slog.LevelError))
}
