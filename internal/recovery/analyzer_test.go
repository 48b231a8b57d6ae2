package recovery_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/testhelpers"
)

func snapshot(bpm ...int) health.Snapshot {
	s := health.Snapshot{Steps: 6000, SleepHours: 7, RecentWorkoutCount: 3}
	for _, v := range bpm {
		s.HeartRate = append(s.HeartRate, health.HeartRateSample{BPM: v})
	}
	return s
}

func replying(reply string, err error) llm.CompleterFunc {
	return func(context.Context, []llm.Message) (string, error) {
		return reply, err
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score         int
		wantStatus    recovery.Status
		wantIntensity recovery.Intensity
	}{
		{score: 100, wantStatus: recovery.StatusExcellent, wantIntensity: recovery.IntensityHigh},
		{score: 80, wantStatus: recovery.StatusExcellent, wantIntensity: recovery.IntensityHigh},
		{score: 79, wantStatus: recovery.StatusGood, wantIntensity: recovery.IntensityModerate},
		{score: 60, wantStatus: recovery.StatusGood, wantIntensity: recovery.IntensityModerate},
		{score: 59, wantStatus: recovery.StatusLow, wantIntensity: recovery.IntensityLight},
		{score: 0, wantStatus: recovery.StatusLow, wantIntensity: recovery.IntensityLight},
	}
	for _, tt := range tests {
		status, intensity := recovery.Classify(tt.score)
		if status != tt.wantStatus || intensity != tt.wantIntensity {
			t.Errorf("Classify(%d) = %s, %s, want %s, %s",
				tt.score, status, intensity, tt.wantStatus, tt.wantIntensity)
		}
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	transportErr := &llm.Error{Kind: llm.KindServer, StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}
	canceledErr := &llm.Error{Kind: llm.KindCanceled, Err: context.Canceled}

	tests := []struct {
		name           string
		reply          string
		err            error
		want           recovery.Assessment
		wantFailure    llm.FailureKind
		wantReconciled bool
	}{
		{
			name: "valid",
			reply: `{"score": 85, "status": "excellent", "reasoning": "Well rested.",
"recommendations": ["Go heavy"], "workoutIntensity": "high"}`,
			want: recovery.Assessment{
				Score:             85,
				Status:            recovery.StatusExcellent,
				Reasoning:         "Well rested.",
				Recommendations:   []string{"Go heavy"},
				TrainingIntensity: recovery.IntensityHigh,
			},
		},
		{
			name: "fenced with prose",
			reply: "Here you go:\n```json\n" + `{"score": 64.6, "status": "good", "reasoning": "Okay.",
"recommendations": [], "workoutIntensity": "moderate"}` + "\n```",
			want: recovery.Assessment{
				Score:             65,
				Status:            recovery.StatusGood,
				Reasoning:         "Okay.",
				Recommendations:   []string{},
				TrainingIntensity: recovery.IntensityModerate,
			},
		},
		{
			name: "inconsistent status",
			reply: `{"score": 90, "status": "low", "reasoning": "Mixed.",
"recommendations": ["Rest"], "workoutIntensity": "light"}`,
			want: recovery.Assessment{
				Score:             90,
				Status:            recovery.StatusExcellent,
				Reasoning:         "Mixed.",
				Recommendations:   []string{"Rest"},
				TrainingIntensity: recovery.IntensityHigh,
			},
			wantReconciled: true,
		},
		{
			name:  "score out of range",
			reply: `{"score": 140, "status": "excellent", "reasoning": "", "recommendations": [],
"workoutIntensity": "HIGH"}`,
			want: recovery.Assessment{
				Score:             100,
				Status:            recovery.StatusExcellent,
				Reasoning:         "",
				Recommendations:   []string{},
				TrainingIntensity: recovery.IntensityHigh,
			},
			wantReconciled: true,
		},
		{
			name:        "transport failure",
			err:         transportErr,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureTransport,
		},
		{
			name:        "canceled",
			err:         canceledErr,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureCanceled,
		},
		{
			name:        "no JSON",
			reply:       "I cannot help with that.",
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "empty object",
			reply:       `{}`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "error object",
			reply:       `{"error": "model overloaded"}`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "null score",
			reply:       `{"score": null, "status": "good", "recommendations": ["Walk"], "workoutIntensity": "moderate"}`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "missing intensity",
			reply:       `{"score": 70, "status": "good", "reasoning": "Fine.", "recommendations": ["Walk"]}`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "score as text",
			reply:       `{"score": "high", "status": "good", "recommendations": [], "workoutIntensity": "moderate"}`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
		{
			name:        "broken JSON",
			reply:       `{"score": 85, "status": }`,
			want:        recovery.Fallback(),
			wantFailure: llm.FailureFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			analyzer := recovery.NewAnalyzer(replying(tt.reply, tt.err), logger)

			got := analyzer.Analyze(t.Context(), snapshot(72, 75, 70))

			if diff := cmp.Diff(tt.want, got.Assessment); diff != "" {
				t.Errorf("Assessment mismatch (-want +got):\n%s", diff)
			}
			if got.Failure != tt.wantFailure {
				t.Errorf("Failure = %q, want %q", got.Failure, tt.wantFailure)
			}
			if got.IsFallback() != (tt.wantFailure != llm.FailureNone) {
				t.Errorf("IsFallback() = %v", got.IsFallback())
			}
			if got.IsFallback() && got.Err == nil {
				t.Error("fallback result has no error")
			}
			if got.Reconciled != tt.wantReconciled {
				t.Errorf("Reconciled = %v, want %v", got.Reconciled, tt.wantReconciled)
			}
			if got.AverageHeartRate != 217.0/3 {
				t.Errorf("AverageHeartRate = %v", got.AverageHeartRate)
			}
		})
	}
}

func TestAnalyzer_Messages(t *testing.T) {
	var sent []llm.Message
	completer := llm.CompleterFunc(func(_ context.Context, messages []llm.Message) (string, error) {
		sent = messages
		return `{"score": 70, "status": "good", "workoutIntensity": "moderate"}`, nil
	})
	analyzer := recovery.NewAnalyzer(completer, testhelpers.NewLogger(testhelpers.NewWriter(t)))
	analyzer.Analyze(t.Context(), snapshot(72, 75, 70))

	if len(sent) != 2 || sent[0].Role != llm.RoleSystem || sent[1].Role != llm.RoleUser {
		t.Fatalf("messages = %+v, want system then user", sent)
	}
	if !strings.Contains(sent[0].Content, "valid JSON only") {
		t.Errorf("system message %q does not constrain the reply to JSON", sent[0].Content)
	}
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name     string
		snapshot health.Snapshot
		want     []string
	}{
		{
			name:     "rounded average",
			snapshot: snapshot(72, 75, 70),
			want: []string{
				"Daily Steps: 6000",
				"Average Heart Rate: 72 bpm",
				"Sleep Duration: 7 hours",
				"Workouts in last 7 days: 3",
				`"workoutIntensity"`,
			},
		},
		{
			name:     "no samples",
			snapshot: health.Snapshot{Steps: 0, SleepHours: 7.5},
			want:     []string{"Average Heart Rate: 0 bpm", "Sleep Duration: 7.5 hours"},
		},
		{
			name:     "rounds half up",
			snapshot: snapshot(70, 71),
			want:     []string{"Average Heart Rate: 71 bpm"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recovery.Prompt(tt.snapshot)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Prompt() does not contain %q:\n%s", want, got)
				}
			}
		})
	}
}
