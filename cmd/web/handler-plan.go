package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/recoverfit/internal/coach"
	"github.com/myrjola/recoverfit/internal/contexthelpers"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/plan"
)

const (
	minDurationMinutes = 10
	maxDurationMinutes = 180
)

type planTemplateData struct {
	BaseTemplateData
	Plan        plan.WorkoutPlan
	Budget      plan.Budget
	Preferences plan.Preferences
	// Notice is set when the plan is the fallback.
	Notice string
}

// parsePreferences validates the preferences form. The returned message is meant for the user.
func parsePreferences(r *http.Request) (plan.Preferences, string) {
	prefs := plan.Preferences{
		FocusArea:       plan.FocusArea(strings.TrimSpace(r.PostForm.Get("focus"))),
		DurationMinutes: 0,
		Equipment:       nil,
	}
	if prefs.FocusArea != "" && !slices.Contains(plan.FocusAreas(), prefs.FocusArea) {
		return prefs, fmt.Sprintf("Unknown focus area %q.", prefs.FocusArea)
	}
	if raw := strings.TrimSpace(r.PostForm.Get("duration")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < minDurationMinutes || d > maxDurationMinutes {
			return prefs, fmt.Sprintf("Duration must be between %d and %d minutes.", minDurationMinutes,
				maxDurationMinutes)
		}
		prefs.DurationMinutes = d
	}
	for _, raw := range r.PostForm["equipment"] {
		e := plan.Equipment(strings.TrimSpace(raw))
		if !slices.Contains(plan.AllEquipment(), e) {
			return prefs, fmt.Sprintf("Unknown equipment %q.", raw)
		}
		if !slices.Contains(prefs.Equipment, e) {
			prefs.Equipment = append(prefs.Equipment, e)
		}
	}
	return prefs.WithDefaults(), ""
}

// planPOST generates a plan for the submitted preferences and the assessment from the last visit to the home page.
func (app *application) planPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	prefs, problem := parsePreferences(r)
	if problem != "" {
		app.clientError(w, r, http.StatusBadRequest, problem)
		return
	}

	var stored storedAssessment
	ok, err := app.getJSON(ctx, assessmentSessionKey, &stored)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding stored assessment", errors.SlogError(err))
	}
	if !ok {
		_, result, assessErr := app.coach.Assess(ctx)
		if assessErr != nil {
			app.serverError(w, r, assessErr)
			return
		}
		stored = storedAssessment{Assessment: result.Assessment, Failure: result.Failure}
		if err = app.putJSON(ctx, assessmentSessionKey, stored); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	result := app.coach.Recommend(ctx, contexthelpers.ClientKey(ctx), stored.Assessment, prefs)
	if errors.Is(result.Err, coach.ErrSuperseded) {
		app.clientError(w, r, http.StatusConflict, "A newer plan request replaced this one.")
		return
	}

	if err = app.putJSON(ctx, preferencesSessionKey, prefs); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = app.putJSON(ctx, planSessionKey, storedPlan{
		Plan:    result.Plan,
		Budget:  result.Budget,
		Failure: result.Failure,
	}); err != nil {
		app.serverError(w, r, err)
		return
	}

	data := planTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plan:             result.Plan,
		Budget:           result.Budget,
		Preferences:      prefs,
		Notice:           fallbackNotice(result.Failure, "plan"),
	}
	app.render(w, r, http.StatusOK, "plan", data)
}
