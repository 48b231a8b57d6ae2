package main

import (
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/workout"
)

const historyLimit = 10

type homeTemplateData struct {
	BaseTemplateData
	Metrics    metricsView
	Assessment recovery.Assessment
	// Notice is set when the assessment is the fallback.
	Notice        string
	ActiveWorkout *workout.Session
	Preferences   preferencesForm
	History       []historyRow
}

type metricsView struct {
	Steps            int
	AverageHeartRate int
	SleepHours       float64
	RecentWorkouts   int
}

type preferencesForm struct {
	FocusAreas      []option
	DurationMinutes int
	Equipment       []option
}

type option struct {
	Value    string
	Selected bool
}

type historyRow struct {
	ID        string
	Name      string
	StartedAt time.Time
	Completed bool
	Summary   workout.Summary
}

func newPreferencesForm(prefs plan.Preferences) preferencesForm {
	prefs = prefs.WithDefaults()
	form := preferencesForm{
		FocusAreas:      nil,
		DurationMinutes: prefs.DurationMinutes,
		Equipment:       nil,
	}
	for _, f := range plan.FocusAreas() {
		form.FocusAreas = append(form.FocusAreas, option{Value: string(f), Selected: f == prefs.FocusArea})
	}
	for _, e := range plan.AllEquipment() {
		form.Equipment = append(form.Equipment, option{Value: string(e), Selected: slices.Contains(prefs.Equipment, e)})
	}
	return form
}

func fallbackNotice(kind llm.FailureKind, what string) string {
	if kind == llm.FailureNone {
		return ""
	}
	return "Using fallback " + what + " (" + string(kind) + ")"
}

func newMetricsView(snapshot health.Snapshot) metricsView {
	return metricsView{
		Steps:            snapshot.Steps,
		AverageHeartRate: int(math.Round(snapshot.AverageHeartRate())),
		SleepHours:       snapshot.SleepHours,
		RecentWorkouts:   snapshot.RecentWorkoutCount,
	}
}

// home reads fresh health metrics, assesses recovery and offers the plan preferences form.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, result, err := app.coach.Assess(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = app.putJSON(ctx, assessmentSessionKey, storedAssessment{
		Assessment: result.Assessment,
		Failure:    result.Failure,
	}); err != nil {
		app.serverError(w, r, err)
		return
	}

	var prefs plan.Preferences
	if _, err = app.getJSON(ctx, preferencesSessionKey, &prefs); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding stored preferences", errors.SlogError(err))
	}

	sessions, err := app.workouts.List(ctx, historyLimit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	history := make([]historyRow, 0, len(sessions))
	now := time.Now()
	for _, s := range sessions {
		history = append(history, historyRow{
			ID:        s.ID,
			Name:      s.Name,
			StartedAt: s.StartedAt,
			Completed: s.IsCompleted(),
			Summary:   s.Summary(now),
		})
	}

	activeWorkout, err := app.activeWorkout(r)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Metrics:          newMetricsView(snapshot),
		Assessment:       result.Assessment,
		Notice:           fallbackNotice(result.Failure, "recovery data"),
		ActiveWorkout:    activeWorkout,
		Preferences:      newPreferencesForm(prefs),
		History:          history,
	}
	app.render(w, r, http.StatusOK, "home", data)
}

// activeWorkout returns the in-progress session remembered by the browser session, if any.
func (app *application) activeWorkout(r *http.Request) (*workout.Session, error) {
	ctx := r.Context()
	id := app.sessionManager.GetString(ctx, workoutIDSessionKey)
	if id == "" {
		return nil, nil //nolint:nilnil // no active workout is not an error.
	}
	sess, err := app.workouts.Get(ctx, id)
	if errors.Is(err, workout.ErrNotFound) {
		app.sessionManager.Remove(ctx, workoutIDSessionKey)
		return nil, nil //nolint:nilnil // stale id.
	}
	if err != nil {
		return nil, errors.Wrap(err, "get active workout", slog.String("id", id))
	}
	if sess.IsCompleted() {
		app.sessionManager.Remove(ctx, workoutIDSessionKey)
		return nil, nil //nolint:nilnil // finished workouts are in the history.
	}
	return &sess, nil
}
