package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
)

// Browser session keys. Values are JSON so that the stored shape is independent of gob registration.
const (
	assessmentSessionKey  = "assessment"
	planSessionKey        = "plan"
	preferencesSessionKey = "preferences"
	workoutIDSessionKey   = "workout_id"
)

type storedAssessment struct {
	Assessment recovery.Assessment `json:"assessment"`
	Failure    llm.FailureKind     `json:"failure,omitempty"`
}

type storedPlan struct {
	Plan    plan.WorkoutPlan `json:"plan"`
	Budget  plan.Budget      `json:"budget"`
	Failure llm.FailureKind  `json:"failure,omitempty"`
}

func (p storedPlan) result() plan.Result {
	return plan.Result{Plan: p.Plan, Budget: p.Budget, Failure: p.Failure, Err: nil}
}

func (app *application) putJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session value %s: %w", key, err)
	}
	app.sessionManager.Put(ctx, key, string(b))
	return nil
}

// getJSON decodes the session value stored under key into v. It reports false when there's no value.
func (app *application) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw := app.sessionManager.GetString(ctx, key)
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		app.sessionManager.Remove(ctx, key)
		return false, fmt.Errorf("unmarshal session value %s: %w", key, err)
	}
	return true, nil
}
