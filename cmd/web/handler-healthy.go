package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/recoverfit/internal/errors"
)

// healthy reports whether the database answers. The completion backend is left out because the fallbacks keep the
// app usable without it.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := app.db.ReadOnly.PingContext(r.Context()); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "health check failed", errors.SlogError(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
