package plan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/llm"
)

var ErrTooFewExercises = errors.NewSentinel("too few exercises")

// Repair validates a raw backend reply against budget:
//
//  1. strip Markdown code fences when the trimmed reply starts with one
//  2. extract the first '{' to the last '}' or fail with [llm.FailureFormat]
//  3. parse the JSON or fail with [llm.FailureFormat]
//  4. drop exercises without a name or with fewer than one set
//  5. fail with [llm.FailureContent] when the remaining exercises are fewer than budget.Min
//  6. truncate to the first budget.Max exercises
//
// A too short plan is rejected rather than padded. A too long plan is trimmed because the leading exercises are
// assumed to be ordered by priority.
func Repair(raw string, budget Budget) (WorkoutPlan, llm.FailureKind, error) {
	cleaned := llm.StripCodeFence(raw)

	object, err := llm.ExtractObject(cleaned)
	if err != nil {
		return WorkoutPlan{}, llm.FailureFormat, errors.Wrap(err, "extract plan", slog.Int("reply_len", len(raw)))
	}

	var p WorkoutPlan
	if err = json.Unmarshal([]byte(object), &p); err != nil {
		return WorkoutPlan{}, llm.FailureFormat, errors.Wrap(err, "parse plan")
	}

	received := len(p.Exercises)
	p.Exercises = slices.DeleteFunc(p.Exercises, func(ex Prescription) bool { return !ex.wellFormed() })
	if len(p.Exercises) < budget.Min {
		return WorkoutPlan{}, llm.FailureContent, errors.Wrap(
			fmt.Errorf("%w: expected %s, got %d", ErrTooFewExercises, budget, len(p.Exercises)),
			"validate plan",
			slog.Int("exercises", len(p.Exercises)),
			slog.Int("malformed", received-len(p.Exercises)),
			slog.Int("min", budget.Min))
	}

	if len(p.Exercises) > budget.Max {
		p.Exercises = p.Exercises[:budget.Max]
	}
	return p, llm.FailureNone, nil
}
