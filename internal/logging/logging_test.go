package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"":        slog.LevelDebug,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in), "input %q", in)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("hello", "component", "collector")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "collector", record["component"])
}

func TestNewWithWriterText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "debug", "text").Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()

	require.NotNil(t, OrDiscard(nil))
	logger := slog.Default()
	assert.Same(t, logger, OrDiscard(logger))
}

func TestScopedAddsContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "text")

	ctx := WithAttrs(context.Background(), "run_id", "r-1")
	ctx = WithAttrs(ctx, "step", "digest")
	Scoped(ctx, logger).Info("hello")
	assert.Contains(t, buf.String(), "run_id=r-1")
	assert.Contains(t, buf.String(), "step=digest")

	assert.Same(t, logger, Scoped(context.Background(), logger))
	require.NotNil(t, Scoped(context.Background(), nil))
}
