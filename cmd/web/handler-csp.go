package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/recoverfit/internal/errors"
)

const maxCSPReportBytes = 64 * 1024

// cspReport is the legacy report-uri body sent by browsers.
type cspReport struct {
	Body struct {
		DocumentURI        string `json:"document-uri"`
		ViolatedDirective  string `json:"violated-directive"`
		EffectiveDirective string `json:"effective-directive"`
		BlockedURI         string `json:"blocked-uri"`
		SourceFile         string `json:"source-file"`
		LineNumber         int    `json:"line-number"`
		Disposition        string `json:"disposition"`
	} `json:"csp-report"`
}

// cspViolation logs Content-Security-Policy violation reports.
func (app *application) cspViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var report cspReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCSPReportBytes)).Decode(&report); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "invalid CSP violation report",
			errors.SlogError(errors.Wrap(err, "decode CSP report")))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	app.logger.LogAttrs(ctx, slog.LevelWarn, "CSP violation detected",
		slog.String("document_uri", report.Body.DocumentURI),
		slog.String("violated_directive", report.Body.ViolatedDirective),
		slog.String("effective_directive", report.Body.EffectiveDirective),
		slog.String("blocked_uri", report.Body.BlockedURI),
		slog.String("source_file", report.Body.SourceFile),
		slog.Int("line_number", report.Body.LineNumber),
		slog.String("disposition", report.Body.Disposition),
		slog.String("user_agent", r.Header.Get("User-Agent")))

	w.WriteHeader(http.StatusNoContent)
}
