package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/llm"
)

const systemPrompt = "You are an expert fitness coach analyzing recovery metrics. Always respond with valid JSON only."

// Analyzer asks the completion backend for a recovery assessment.
type Analyzer struct {
	completer llm.Completer
	logger    *slog.Logger
}

func NewAnalyzer(completer llm.Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{completer: completer, logger: logger}
}

// Analyze never fails. When the backend call fails or its reply cannot be parsed the result carries [Fallback]
// tagged with the failure kind.
func (a *Analyzer) Analyze(ctx context.Context, snapshot health.Snapshot) Result {
	avg := snapshot.AverageHeartRate()
	messages := []llm.Message{llm.System(systemPrompt), llm.User(Prompt(snapshot))}

	reply, err := a.completer.Complete(ctx, messages)
	if err != nil {
		return a.fallback(ctx, avg, llm.ClassifyFailure(err), err)
	}

	assessment, err := parse(reply)
	if err != nil {
		return a.fallback(ctx, avg, llm.FailureFormat, err)
	}

	assessment, reconciled := Reconcile(assessment)
	if reconciled {
		a.logger.LogAttrs(ctx, slog.LevelInfo, "reconciled recovery assessment",
			slog.Int("score", assessment.Score),
			slog.String("status", string(assessment.Status)))
	}
	return Result{
		Assessment:       assessment,
		AverageHeartRate: avg,
		Failure:          llm.FailureNone,
		Err:              nil,
		Reconciled:       reconciled,
	}
}

func (a *Analyzer) fallback(ctx context.Context, avg float64, kind llm.FailureKind, err error) Result {
	a.logger.LogAttrs(ctx, slog.LevelWarn, "using fallback recovery assessment",
		slog.String("failure", string(kind)), errors.SlogError(err))
	return Result{
		Assessment:       Fallback(),
		AverageHeartRate: avg,
		Failure:          kind,
		Err:              err,
		Reconciled:       false,
	}
}

// errIncompleteReply marks a well-formed JSON reply that is not an assessment.
var errIncompleteReply = errors.NewSentinel("incomplete assessment reply")

// reply mirrors Assessment but tolerates a fractional score. Pointers tell a missing field from a zero value.
type reply struct {
	Score             *float64   `json:"score"`
	Status            *Status    `json:"status"`
	Reasoning         string     `json:"reasoning"`
	Recommendations   []string   `json:"recommendations"`
	TrainingIntensity *Intensity `json:"workoutIntensity"`
}

func (r reply) missing() []string {
	var fields []string
	if r.Score == nil {
		fields = append(fields, "score")
	}
	if r.Status == nil || *r.Status == "" {
		fields = append(fields, "status")
	}
	if r.Recommendations == nil {
		fields = append(fields, "recommendations")
	}
	if r.TrainingIntensity == nil || *r.TrainingIntensity == "" {
		fields = append(fields, "workoutIntensity")
	}
	return fields
}

func parse(raw string) (Assessment, error) {
	object, err := llm.ExtractObject(raw)
	if err != nil {
		return Assessment{}, errors.Wrap(err, "extract assessment", slog.Int("reply_len", len(raw)))
	}
	var r reply
	if err = json.Unmarshal([]byte(object), &r); err != nil {
		return Assessment{}, errors.Wrap(err, "parse assessment")
	}
	if missing := r.missing(); len(missing) > 0 {
		return Assessment{}, errors.Wrap(errIncompleteReply, "parse assessment",
			slog.Any("missing", missing))
	}
	return Assessment{
		Score:             int(math.Round(*r.Score)),
		Status:            *r.Status,
		Reasoning:         r.Reasoning,
		Recommendations:   r.Recommendations,
		TrainingIntensity: *r.TrainingIntensity,
	}, nil
}

// Prompt is the user message asking for an assessment of snapshot.
func Prompt(snapshot health.Snapshot) string {
	return fmt.Sprintf(`You are a fitness recovery expert. Analyze the following health data and provide a recovery score (0-100) and recommendations. Make your response directed towards the individual.

Health Data:
- Daily Steps: %d
- Average Heart Rate: %.0f bpm
- Sleep Duration: %s hours
- Workouts in last 7 days: %d

Provide your response in the following JSON format:
{
  "score": <number 0-100>,
  "status": <"excellent" | "good" | "low">,
  "reasoning": "<brief explanation>",
  "recommendations": ["<recommendation 1>", "<recommendation 2>", "<recommendation 3>"],
  "workoutIntensity": <"high" | "moderate" | "light">
}`,
		snapshot.Steps,
		math.Round(snapshot.AverageHeartRate()),
		strconv.FormatFloat(snapshot.SleepHours, 'f', -1, 64),
		snapshot.RecentWorkoutCount)
}
