package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/recoverfit/internal/errors"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	data := errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Message:          "Something went wrong on our side. Please try again.",
	}
	app.render(w, r, http.StatusInternalServerError, "error", data)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// clientError renders the error page with a message the user can act on.
func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "client error",
		slog.Int("status", status), slog.String("message", message))
	data := errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Message:          message,
	}
	app.render(w, r, status, "error", data)
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}
