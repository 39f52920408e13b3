package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			check.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("quiet")
	logger.Warn("loud", "bid_id", "bid1")

	out := buf.String()
	check.False(t, strings.Contains(out, "quiet"))
	check.True(t, strings.Contains(out, "loud"))
	check.True(t, strings.Contains(out, "bid1"))
}
