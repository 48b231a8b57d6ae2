package testhelpers

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

// Writer sends each written log record to t.Log so that logs only show up for failing or verbose tests.
type Writer struct {
	t    *testing.T
	mu   sync.Mutex
	done bool
}

// NewWriter returns a log sink bound to t. Writing after t has finished panics, which points at a server or
// goroutine that outlived its test.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, mu: sync.Mutex{}, done: false}
	t.Cleanup(func() {
		w.mu.Lock()
		w.done = true
		w.mu.Unlock()
	})
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		panic("testhelpers: log written after the test finished, is the server shut down in t.Cleanup?")
	}
	if line := bytes.TrimRight(p, "\n"); len(line) > 0 {
		w.t.Log(string(line))
	}
	return len(p), nil
}
