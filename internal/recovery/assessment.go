// Package recovery turns health metrics into a recovery assessment using a completion backend.
package recovery

import (
	"strings"

	"github.com/myrjola/recoverfit/internal/llm"
)

type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusLow       Status = "low"
)

type Intensity string

const (
	IntensityHigh     Intensity = "high"
	IntensityModerate Intensity = "moderate"
	IntensityLight    Intensity = "light"
)

const (
	excellentThreshold = 80
	goodThreshold      = 60
	maxScore           = 100
)

// Assessment is the recovery classification a plan is generated from.
type Assessment struct {
	Score             int       `json:"score"`
	Status            Status    `json:"status"`
	Reasoning         string    `json:"reasoning"`
	Recommendations   []string  `json:"recommendations"`
	TrainingIntensity Intensity `json:"workoutIntensity"`
}

// Classify maps a score to the status and intensity tier the policy expects.
func Classify(score int) (Status, Intensity) {
	switch {
	case score >= excellentThreshold:
		return StatusExcellent, IntensityHigh
	case score >= goodThreshold:
		return StatusGood, IntensityModerate
	default:
		return StatusLow, IntensityLight
	}
}

// Fallback is the fixed assessment used whenever the backend answer cannot be used.
func Fallback() Assessment {
	return Assessment{
		Score:     78, //nolint:mnd // canned value.
		Status:    StatusGood,
		Reasoning: "Based on your recent activity and rest patterns.",
		Recommendations: []string{
			"Focus on moderate intensity workouts",
			"Ensure 7-8 hours of sleep tonight",
			"Stay hydrated throughout the day",
		},
		TrainingIntensity: IntensityModerate,
	}
}

// Reconcile clamps the score to 0-100 and replaces a status or intensity that disagrees with [Classify].
// It reports whether anything was changed.
func Reconcile(a Assessment) (Assessment, bool) {
	changed := false
	if a.Score < 0 {
		a.Score, changed = 0, true
	}
	if a.Score > maxScore {
		a.Score, changed = maxScore, true
	}
	wantStatus, wantIntensity := Classify(a.Score)
	if Status(strings.ToLower(string(a.Status))) != wantStatus {
		changed = true
	}
	if Intensity(strings.ToLower(string(a.TrainingIntensity))) != wantIntensity {
		changed = true
	}
	a.Status, a.TrainingIntensity = wantStatus, wantIntensity
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a, changed
}

// Result is the outcome of [Analyzer.Analyze]. Failure is empty unless Assessment is the fallback.
type Result struct {
	Assessment       Assessment
	AverageHeartRate float64
	Failure          llm.FailureKind
	Err              error
	// Reconciled is set when the score, status or intensity of the reply had to be corrected.
	Reconciled bool
}

func (r Result) IsFallback() bool {
	return r.Failure != llm.FailureNone
}
