package plan

import (
	"fmt"

	"github.com/myrjola/recoverfit/internal/recovery"
)

// Fallback is the fixed five exercise plan used whenever the backend answer cannot be used. Sessions too short for
// five exercises get the first budget.Max of them.
func Fallback(a recovery.Assessment, prefs Preferences) WorkoutPlan {
	prefs = prefs.WithDefaults()
	exercises := []Prescription{
		{Name: "Goblet Squats", TargetSets: 3, TargetReps: "10-12", Notes: "Sit between the hips, chest tall"},
		{Name: "Dumbbell Bench Press", TargetSets: 3, TargetReps: "8-10", Notes: "Control the lowering phase"},
		{Name: "Dumbbell Rows", TargetSets: 3, TargetReps: "10-12", Notes: "Pull the elbow towards the hip"},
		{Name: "Dumbbell Shoulder Press", TargetSets: 3, TargetReps: "8-10", Notes: "Brace the core, avoid arching"},
		{Name: "Plank", TargetSets: 2, TargetReps: "30-45 seconds", Notes: "Squeeze glutes, neutral spine"},
	}
	if budget := BudgetFor(prefs.DurationMinutes); len(exercises) > budget.Max {
		exercises = exercises[:budget.Max]
	}
	return WorkoutPlan{
		Name:            fmt.Sprintf("%s Recovery Session", prefs.FocusArea),
		Type:            "Strength",
		DurationMinutes: prefs.DurationMinutes,
		Exercises:       exercises,
		Reasoning: fmt.Sprintf("Your recovery status is %s, so this balanced session %s "+
			"while covering the main movement patterns.", a.Status, fallbackEffort(a)),
	}
}

// fallbackEffort follows the tiers of [GuidelinesFor].
func fallbackEffort(a recovery.Assessment) string {
	switch {
	case a.Score < lowScoreThreshold || a.TrainingIntensity == recovery.IntensityLight:
		return "keeps the effort light with reps well short of failure"
	case a.Score >= highScoreThreshold || a.TrainingIntensity == recovery.IntensityHigh:
		return "leaves room to push the last set of each exercise"
	default:
		return "keeps the effort moderate"
	}
}
