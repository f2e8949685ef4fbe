package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestManager_Setup(t *testing.T) {
	var file bytes.Buffer

	m := NewManager()
	m.Setup(&file, "debug")

	m.Logger().Debug("steer target set", "target", -400)

	out := file.String()
	assert.Contains(t, out, "Logging initialized")
	assert.Contains(t, out, "steer target set")
	assert.Contains(t, out, "target=-400")
}

func TestManager_LoggerBeforeSetup(t *testing.T) {
	m := NewManager()
	require.NotNil(t, m.Logger())
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
		nil,
	)

	logger := slog.New(h)
	logger.Info("motor applied", "power", 255)

	assert.Contains(t, a.String(), "motor applied")
	assert.Contains(t, b.String(), "motor applied")
}

func TestMultiHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := LogFilePath("logs", "rccard", start)
	assert.Equal(t, filepath.Join("logs", "rccard.20260314_150926.log"), got)
}
