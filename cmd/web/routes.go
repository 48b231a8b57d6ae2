package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

func (app *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	var (
		shared = func(d time.Duration, next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(d)(next)))))
		}
		noSession = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(defaultTimeout, next))
		}
		sessionWithTimeout = func(d time.Duration, next http.Handler) http.Handler {
			return app.recoverPanic(app.extendWriteDeadline(d, noCache(app.sessionManager.LoadAndSave(
				shared(d, app.clientKey(next))))))
		}
		session = func(next http.Handler) http.Handler {
			return sessionWithTimeout(defaultTimeout, next)
		}
		// coached routes wait for the completion backend.
		coached = func(next http.Handler) http.Handler {
			return sessionWithTimeout(app.aiTimeout, next)
		}
	)

	mux.Handle("GET /{$}", coached(http.HandlerFunc(app.home)))
	mux.Handle("POST /plans", coached(http.HandlerFunc(app.planPOST)))

	mux.Handle("POST /workouts", session(http.HandlerFunc(app.workoutPOST)))
	mux.Handle("GET /workouts/{id}", session(http.HandlerFunc(app.workoutGET)))
	mux.Handle("POST /workouts/{id}/exercises/{exerciseID}/sets/{setNumber}", session(http.HandlerFunc(app.setPOST)))
	mux.Handle("POST /workouts/{id}/complete", session(http.HandlerFunc(app.workoutCompletePOST)))

	mux.Handle("GET /api/healthy", noSession(http.HandlerFunc(app.healthy)))
	mux.Handle("POST /api/csp-violation", noSession(http.HandlerFunc(app.cspViolation)))

	fileServerHandler, err := app.fileServerHandler(session(http.HandlerFunc(app.notFound)))
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", noSession(fileServerHandler))

	return mux, nil
}

// extendWriteDeadline lifts the server's write timeout for handlers that are allowed to run longer than the default.
func (app *application) extendWriteDeadline(d time.Duration, next http.Handler) http.Handler {
	if d <= defaultTimeout {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(d)); err != nil {
			app.logger.LogAttrs(r.Context(), slog.LevelWarn, "could not extend write deadline",
				slog.String("error", err.Error()))
		}
		next.ServeHTTP(w, r)
	})
}
