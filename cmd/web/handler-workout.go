package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/workout"
)

type workoutTemplateData struct {
	BaseTemplateData
	Session workout.Session
	Summary workout.Summary
	// Notice is set when the session was started from the fallback plan.
	Notice string
}

func workoutPath(id string) string {
	return "/workouts/" + id
}

// workoutError maps session store errors to responses.
func (app *application) workoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		app.notFound(w, r)
	case errors.Is(err, workout.ErrSessionCompleted):
		app.clientError(w, r, http.StatusConflict, "This workout is already completed.")
	case errors.Is(err, workout.ErrInvalidInput):
		app.clientError(w, r, http.StatusBadRequest, "Weight and reps can't be negative.")
	default:
		app.serverError(w, r, err)
	}
}

// workoutPOST starts a session from the plan shown on the plan page.
func (app *application) workoutPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var stored storedPlan
	ok, err := app.getJSON(ctx, planSessionKey, &stored)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding stored plan", errors.SlogError(err))
	}
	if !ok {
		redirect(w, r, "/")
		return
	}

	sess, err := app.coach.Accept(ctx, stored.result())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	// The plan is consumed so that resubmitting the form doesn't start a second session.
	app.sessionManager.Remove(ctx, planSessionKey)
	app.sessionManager.Put(ctx, workoutIDSessionKey, sess.ID)

	redirect(w, r, workoutPath(sess.ID))
}

// workoutGET shows the session. Completed sessions show the summary instead.
func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	sess, err := app.workouts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		app.workoutError(w, r, err)
		return
	}
	data := workoutTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Session:          sess,
		Summary:          sess.Summary(time.Now()),
		Notice:           "",
	}
	if sess.FromFallback {
		data.Notice = "Using fallback plan"
	}
	page := "workout"
	if sess.IsCompleted() {
		page = "summary"
	}
	app.render(w, r, http.StatusOK, page, data)
}

// parseOptionalFloat returns nil for a blank value.
func parseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil //nolint:nilnil // blank means unchanged.
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("parse float %q: %w", raw, err)
	}
	return &f, nil
}

// parseOptionalInt returns nil for a blank value.
func parseOptionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil //nolint:nilnil // blank means unchanged.
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("parse int %q: %w", raw, err)
	}
	return &n, nil
}

// setPOST records weight and reps for a set or toggles its completion, depending on the submitted action.
func (app *application) setPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	exerciseID := r.PathValue("exerciseID")
	setNumber, err := strconv.Atoi(r.PathValue("setNumber"))
	if err != nil || setNumber < 1 {
		app.notFound(w, r)
		return
	}
	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	switch r.PostForm.Get("action") {
	case "toggle":
		_, err = app.workouts.ToggleSetCompletion(ctx, id, exerciseID, setNumber)
	case "save", "":
		weight, weightErr := parseOptionalFloat(r.PostForm.Get("weight_kg"))
		reps, repsErr := parseOptionalInt(r.PostForm.Get("reps"))
		if weightErr != nil || repsErr != nil {
			app.clientError(w, r, http.StatusBadRequest, "Weight and reps must be numbers.")
			return
		}
		_, err = app.workouts.UpdateSet(ctx, id, exerciseID, setNumber, weight, reps)
	default:
		app.clientError(w, r, http.StatusBadRequest, "Unknown action.")
		return
	}
	if err != nil {
		app.workoutError(w, r, err)
		return
	}

	redirect(w, r, workoutPath(id)+"#"+exerciseID)
}

// workoutCompletePOST completes the session and shows its summary.
func (app *application) workoutCompletePOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := app.workouts.Complete(ctx, id); err != nil {
		app.workoutError(w, r, err)
		return
	}
	if app.sessionManager.GetString(ctx, workoutIDSessionKey) == id {
		app.sessionManager.Remove(ctx, workoutIDSessionKey)
	}
	redirect(w, r, workoutPath(id))
}
