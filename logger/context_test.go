package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/programme-lv/judgeworker/logger"
	"github.com/stretchr/testify/assert"
)

func TestWithCycleIDAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := logger.WithLogger(context.Background(), base)
	ctx = logger.WithCycleID(ctx, "c-42")
	logger.FromContext(ctx).Info("leased message")

	assert.Contains(t, buf.String(), "cycle_id=c-42")
	assert.Contains(t, buf.String(), "leased message")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), logger.FromContext(context.Background()))
}

func TestWithAccumulatesAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := logger.WithLogger(context.Background(), base)
	ctx = logger.WithCycleID(ctx, "c-7")
	ctx = logger.With(ctx, "submission_id", "ab12-cd34")
	logger.FromContext(ctx).Warn("engine unreachable")

	out := buf.String()
	assert.Contains(t, out, "cycle_id=c-7")
	assert.Contains(t, out, "submission_id=ab12-cd34")
	assert.Contains(t, out, "level=WARN")
}

func TestNewSelectsJsonFormat(t *testing.T) {
	l := logger.New("judgeworker", "debug", "json")
	assert.True(t, l.Options.JSON)
	assert.Equal(t, slog.LevelDebug, l.Options.LogLevel)

	l = logger.New("judgeworker", "warn", "text")
	assert.False(t, l.Options.JSON)
}
