package main

import (
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder tracks the status code and body size passing through to the client.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err //nolint:wrapcheck // the writer's error is returned as is.
}

// Unwrap lets http.ResponseController reach the connection to extend deadlines.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// logResponse logs the outcome of every request. Server errors are logged at error level and timeouts at warn.
func (app *application) logResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, status: 0, bytes: 0}
		next.ServeHTTP(rr, r)
		if rr.status == 0 {
			rr.status = http.StatusOK
		}

		level := slog.LevelInfo
		switch {
		case rr.status == http.StatusServiceUnavailable:
			level = slog.LevelWarn
		case rr.status >= http.StatusInternalServerError:
			level = slog.LevelError
		}
		app.logger.LogAttrs(r.Context(), level, "request completed",
			slog.Int("status_code", rr.status),
			slog.Int("bytes", rr.bytes),
			slog.Duration("duration", time.Since(start)))
	})
}
