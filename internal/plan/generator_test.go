package plan_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/testhelpers"
)

func TestGenerator_Generate(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		err           error
		prefs         plan.Preferences
		wantFailure   llm.FailureKind
		wantName      string
		wantExercises int
		wantDuration  int
	}{
		{
			name:          "accepted",
			reply:         planJSON(4),
			wantName:      "Push Day",
			wantExercises: 4,
			wantDuration:  45,
		},
		{
			name:          "duration inherited",
			reply:         `{"name": "Quick", "type": "Conditioning", "exercises": [{"name": "A", "sets": 2, "reps": "10"}]}`,
			prefs:         plan.Preferences{DurationMinutes: 10},
			wantName:      "Quick",
			wantExercises: 1,
			wantDuration:  10,
		},
		{
			name:          "transport failure",
			err:           &llm.Error{Kind: llm.KindServer, StatusCode: 500, Err: errors.New("boom")},
			wantFailure:   llm.FailureTransport,
			wantName:      "Full Body Recovery Session",
			wantExercises: 5,
			wantDuration:  45,
		},
		{
			name:          "content failure",
			reply:         planJSON(1),
			wantFailure:   llm.FailureContent,
			wantName:      "Full Body Recovery Session",
			wantExercises: 5,
			wantDuration:  45,
		},
		{
			name:          "canceled",
			err:           context.Canceled,
			prefs:         plan.Preferences{FocusArea: plan.FocusCore, DurationMinutes: 30},
			wantFailure:   llm.FailureCanceled,
			wantName:      "Core Recovery Session",
			wantExercises: 3,
			wantDuration:  30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
				return tt.reply, tt.err
			})
			g := plan.NewGenerator(completer, testhelpers.NewLogger(testhelpers.NewWriter(t)))

			got := g.Generate(t.Context(), recovery.Fallback(), tt.prefs)

			if got.Failure != tt.wantFailure {
				t.Errorf("Failure = %q, want %q", got.Failure, tt.wantFailure)
			}
			if got.IsFallback() != (tt.wantFailure != llm.FailureNone) || (got.IsFallback() && got.Err == nil) {
				t.Errorf("IsFallback() = %v, Err = %v", got.IsFallback(), got.Err)
			}
			if got.Plan.Name != tt.wantName {
				t.Errorf("Plan.Name = %q, want %q", got.Plan.Name, tt.wantName)
			}
			if len(got.Plan.Exercises) != tt.wantExercises {
				t.Errorf("got %d exercises, want %d", len(got.Plan.Exercises), tt.wantExercises)
			}
			if got.Plan.DurationMinutes != tt.wantDuration {
				t.Errorf("Plan.DurationMinutes = %d, want %d", got.Plan.DurationMinutes, tt.wantDuration)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	now := time.UnixMilli(1760860800000)
	high := recovery.Assessment{Score: 85, Status: recovery.StatusExcellent, TrainingIntensity: recovery.IntensityHigh}
	low := recovery.Assessment{Score: 55, Status: recovery.StatusLow, TrainingIntensity: recovery.IntensityLight}

	tests := []struct {
		name       string
		assessment recovery.Assessment
		prefs      plan.Preferences
		want       []string
		notWant    []string
	}{
		{
			name:       "upper body high recovery",
			assessment: high,
			prefs: plan.Preferences{
				FocusArea:       plan.FocusUpperBody,
				DurationMinutes: 45,
				Equipment:       []plan.Equipment{plan.EquipmentBarbell, plan.EquipmentCables},
			},
			want: []string{
				"MUST create 3-5 exercises ONLY",
				"Recovery Score: 85/100 (excellent)",
				"Recommended Intensity: high",
				"Focus: Upper Body",
				"Equipment Available: Barbell, Cables",
				"Sets per exercise: 4-5",
				"HIGH RECOVERY",
				"horizontal push",
				`"name": "Heavy Push Power"`,
				`"name": "Active Recovery Flow"`,
				"Use timestamp: 1760860800000 and request id: nonce-1",
			},
			notWant: []string{"squat or hinge"},
		},
		{
			name:       "defaults low recovery",
			assessment: low,
			prefs:      plan.Preferences{},
			want: []string{
				"Focus: Full Body",
				"Equipment Available: Bodyweight, Dumbbells",
				"Total workout: 45 minutes",
				"Rep range: 12-15",
				"LOW RECOVERY",
				"horizontal push",
				"squat or hinge",
			},
		},
		{
			name:       "lower body short session",
			assessment: recovery.Fallback(),
			prefs:      plan.Preferences{FocusArea: plan.FocusLowerBody, DurationMinutes: 20},
			want:       []string{"MUST create 2 exercises ONLY", "MODERATE RECOVERY", "posterior chain"},
			notWant:    []string{"horizontal push"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plan.Prompt(tt.assessment, tt.prefs, now, "nonce-1")
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Prompt() does not contain %q", want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("Prompt() contains %q", notWant)
				}
			}
		})
	}
}

func TestGenerator_Messages(t *testing.T) {
	var sent []llm.Message
	completer := llm.CompleterFunc(func(_ context.Context, messages []llm.Message) (string, error) {
		sent = messages
		return planJSON(3), nil
	})
	plan.NewGenerator(completer, testhelpers.NewLogger(testhelpers.NewWriter(t))).
		Generate(t.Context(), recovery.Fallback(), plan.Preferences{})

	if len(sent) != 2 || sent[0].Role != llm.RoleSystem || sent[1].Role != llm.RoleUser {
		t.Fatalf("messages = %+v, want system then user", sent)
	}
	if !strings.Contains(sent[0].Content, "ONLY valid JSON") {
		t.Errorf("system message %q does not constrain the reply to JSON", sent[0].Content)
	}
}
