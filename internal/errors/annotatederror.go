// Package errors annotates errors with a message, structured slog attributes and the source location where the
// annotation happened. It re-exports the standard library helpers so callers only need one errors import.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type annotatedError struct {
	msg         string
	cause       error
	annotations []slog.Attr
	source      string
}

func (e *annotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// NewSentinel creates a plain error without source location. Use it for package level sentinel values.
func NewSentinel(msg string) error {
	return stderrors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error that remembers where it was created.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       nil,
		annotations: attrs,
		source:      caller(1),
	}
}

// Wrap annotates err with msg and attrs. The call site is recorded and reported by [SlogError].
//
// Wrapping a nil error yields an error carrying only msg.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       err,
		annotations: attrs,
		source:      caller(1),
	}
}

// DecoratePanic converts a recovered panic value into an error pointing at the line that panicked.
// It returns nil when excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	}
	msg := fmt.Sprintf("panic: %v", excp)
	if cause != nil {
		msg = "panic"
	}
	return &annotatedError{
		msg:         msg,
		cause:       cause,
		annotations: nil,
		source:      panicSite(),
	}
}

// SlogError returns an "error" group attribute with the message, the annotations collected along the wrap chain and
// the source location of the innermost annotation.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	var (
		annotations []any
		source      string
	)
	visit(err, func(ae *annotatedError) {
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		if ae.source != "" {
			source = ae.source
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// visit walks the error tree depth first, including joined errors.
func visit(err error, fn func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the tree manually.
		fn(ae)
	}
	switch u := err.(type) { //nolint:errorlint // walking the tree manually.
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			visit(e, fn)
		}
	case interface{ Unwrap() error }:
		visit(u.Unwrap(), fn)
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// panicSite finds the frame right after runtime.gopanic, which is the statement that panicked.
func panicSite() string {
	pcs := make([]uintptr, 32) //nolint:mnd // deep enough for recovery handlers.
	n := runtime.Callers(2, pcs) //nolint:mnd // skip runtime.Callers and panicSite.
	frames := runtime.CallersFrames(pcs[:n])
	sawPanic := false
	for {
		frame, more := frames.Next()
		if sawPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			sawPanic = true
		}
		if !more {
			break
		}
	}
	return caller(2) //nolint:mnd // fall back to the caller of DecoratePanic.
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
