package errors_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/testhelpers"
)

// here returns the file:line of its caller shifted by offset lines so assertions survive edits to this file.
func here(offset int) string {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Sprintf("%s:%d", file, line+offset)
}

func TestAnnotatedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  errors.NewSentinel("completion failed"),
			want: "completion failed",
		},
		{
			name: "annotated",
			err:  errors.Wrap(errors.NewSentinel("no JSON object"), "parse assessment", slog.Int("len", 3)),
			want: "parse assessment: no JSON object",
		},
		{
			name: "nested",
			err: errors.Wrap(
				errors.Wrap(errors.NewSentinel("root cause"), "repair plan"),
				"generate plan",
			),
			want: "generate plan: repair plan: root cause",
		},
		{
			name: "wrap nil",
			err:  errors.Wrap(nil, "only message"),
			want: "only message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAndAs(t *testing.T) {
	root := errors.NewSentinel("root")
	wrapped := errors.Wrap(root, "context")

	if !errors.Is(wrapped, root) {
		t.Error("Is() = false, want true for wrapped sentinel")
	}
	if errors.Is(wrapped, errors.NewSentinel("root")) {
		t.Error("Is() = true, want false for a different sentinel with the same text")
	}

	custom := &customError{msg: "custom"}
	var target *customError
	if !errors.As(errors.Wrap(custom, "context"), &target) {
		t.Fatal("As() = false, want true")
	}
	if target != custom {
		t.Errorf("As() target = %v, want %v", target, custom)
	}
	if got := errors.Unwrap(fmt.Errorf("ctx: %w", root)); !errors.Is(got, root) {
		t.Errorf("Unwrap() = %v, want %v", got, root)
	}
}

func TestSlogError(t *testing.T) {
	attrs := []slog.Attr{slog.String("model", "gpt"), slog.Duration("timeout", time.Second)}
	err, site := errors.Wrap(errors.NewSentinel("timeout"), "call backend", attrs...), here(0)

	var buf bytes.Buffer
	testhelpers.NewLogger(&buf).LogAttrs(t.Context(), slog.LevelError, "failed", errors.SlogError(err))
	logLine := buf.String()

	for _, want := range []string{
		"error.annotations.model=gpt",
		"error.annotations.timeout=1s",
		"error.message=\"call backend: timeout\"",
		site,
	} {
		if !strings.Contains(logLine, want) {
			t.Errorf("log line %q does not contain %q", logLine, want)
		}
	}
	if strings.Contains(logLine, "annotatederror.go") {
		t.Errorf("log line %q points into the errors package", logLine)
	}

	// None of these may panic.
	errors.SlogError(nil)
	errors.SlogError(errors.Join(nil, nil, errors.NewSentinel("a"), errors.New("b")))
	errors.SlogError(errors.Wrap(errors.Join(nil, nil), "wrap"))
}

func TestDecoratePanic(t *testing.T) {
	var site string
	defer func() {
		err := errors.DecoratePanic(recover())
		if err == nil {
			t.Fatal("expected error")
		}
		if got, want := err.Error(), "panic: boom"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
		if got := errors.SlogError(err).String(); !strings.Contains(got, site) {
			t.Errorf("SlogError() = %q, want it to contain %q", got, site)
		}
	}()
	site = here(1)
	panic("boom")
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
