package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/recoverfit/internal/logging"
)

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug)

	parent := logging.WithAttrs(context.Background(), slog.String("trace_id", "abc"))
	first := logging.WithAttrs(parent, slog.String("step", "analyze"))
	second := logging.WithAttrs(parent, slog.String("step", "generate"))

	logger.LogAttrs(first, slog.LevelInfo, "first")
	logger.LogAttrs(second, slog.LevelInfo, "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "trace_id=abc") || !strings.Contains(lines[0], "step=analyze") {
		t.Errorf("first line %q misses context attributes", lines[0])
	}
	if !strings.Contains(lines[1], "step=generate") || strings.Contains(lines[1], "step=analyze") {
		t.Errorf("second line %q leaks attributes from a sibling context", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
