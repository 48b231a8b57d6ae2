package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/recoverfit/internal/flightrecorder"
	"github.com/myrjola/recoverfit/internal/testhelpers"
)

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		sleep    time.Duration
		timesOut bool
	}{
		{
			name:     "completes within default timeout",
			timeout:  defaultTimeout,
			sleep:    500 * time.Millisecond,
			timesOut: false,
		},
		{
			name:     "exceeds default timeout",
			timeout:  defaultTimeout,
			sleep:    3 * time.Second,
			timesOut: true,
		},
		{
			name:     "coached route waits for the backend",
			timeout:  coachedTimeout(20 * time.Second),
			sleep:    22 * time.Second,
			timesOut: false,
		},
		{
			name:     "coached route outlasts an assessment and a plan that both time out",
			timeout:  coachedTimeout(20 * time.Second),
			sleep:    2*20*time.Second + time.Second,
			timesOut: false,
		},
		{
			name:     "coached route times out eventually",
			timeout:  coachedTimeout(20 * time.Second),
			sleep:    50 * time.Second,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // only the logger is needed.
					logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
				}
				canceled := make(chan struct{})
				handler := app.timeout(tt.timeout)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-time.After(tt.sleep):
						_, _ = w.Write([]byte("done"))
					case <-r.Context().Done():
						close(canceled)
					}
				}))

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
				synctest.Wait()

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("status = %d, want 503", w.Code)
					}
					if !strings.Contains(w.Body.String(), "Timeout") {
						t.Errorf("body = %q, want the timeout page", w.Body.String())
					}
					select {
					case <-canceled:
					default:
						t.Error("handler context was not canceled")
					}
					return
				}
				if w.Code != http.StatusOK || w.Body.String() != "done" {
					t.Errorf("got %d %q, want 200 done", w.Code, w.Body.String())
				}
			})
		})
	}
}

func Test_application_timeoutTrace(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	dir := t.TempDir()
	//nolint:exhaustruct // defaults
	recorder, err := flightrecorder.New(flightrecorder.Config{TracesDirectory: dir}, logger)
	if err != nil {
		t.Fatalf("flightrecorder.New() error = %v", err)
	}
	if err = recorder.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer recorder.Stop(t.Context())

	app := &application{ //nolint:exhaustruct // only the logger and recorder are needed.
		logger:         logger,
		flightRecorder: recorder,
	}
	handler := app.timeout(300 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	// The trace is written after the handler returns, which can be after the timeout response.
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			t.Fatalf("ReadDir() error = %v", readErr)
		}
		if len(entries) == 1 && strings.HasPrefix(entries[0].Name(), "timeout-") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d trace files, want one timeout trace", len(entries))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func Test_application_recoverPanic(t *testing.T) {
	templatePath, err := resolveAndVerifyTemplatePath("")
	if err != nil {
		t.Fatalf("resolveAndVerifyTemplatePath() error = %v", err)
	}
	var logs bytes.Buffer
	app := &application{ //nolint:exhaustruct // rendering the error page needs only these.
		logger:     testhelpers.NewLogger(&logs),
		templateFS: os.DirFS(templatePath),
	}
	handler := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Something went wrong") {
		t.Errorf("body = %q, want the error page", w.Body.String())
	}
	if !strings.Contains(logs.String(), "panic: boom") {
		t.Errorf("log %q does not mention the panic", logs.String())
	}
}
