package coach_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/recoverfit/internal/coach"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/sqlite"
	"github.com/myrjola/recoverfit/internal/testhelpers"
	"github.com/myrjola/recoverfit/internal/workout"
)

type staticSource struct {
	snapshot health.Snapshot
	err      error
}

func (s staticSource) Snapshot(context.Context) (health.Snapshot, error) {
	return s.snapshot, s.err
}

func newCoach(t *testing.T, source health.Source, completer llm.Completer) *coach.Service {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return coach.NewService(
		source,
		recovery.NewAnalyzer(completer, logger),
		plan.NewGenerator(completer, logger),
		workout.NewService(db, logger),
		logger,
	)
}

// The backend is down: the user still gets the canned assessment and the canned five exercise plan.
func TestPipeline_TransportFailure(t *testing.T) {
	ctx := t.Context()
	srv := testhelpers.NewCompletionServer(t, func(testhelpers.CompletionRequest) (string, int) {
		return "service unavailable", http.StatusServiceUnavailable
	})
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	client := llm.NewClient(llm.Config{
		APIKey:        "test",
		BaseURL:       srv.BaseURL(),
		Model:         "test-model",
		Temperature:   0.7,
		Timeout:       time.Second,
		MaxRetries:    0,
		MaxConcurrent: 1,
	}, logger)
	source := staticSource{snapshot: health.Snapshot{
		Steps: 6000,
		HeartRate: []health.HeartRateSample{
			{BPM: 72}, {BPM: 75}, {BPM: 70},
		},
		SleepHours:         7,
		RecentWorkoutCount: 3,
	}}
	svc := newCoach(t, source, client)

	_, assessed, err := svc.Assess(ctx)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	a := assessed.Assessment
	if a.Score != 78 || a.Status != recovery.StatusGood || a.TrainingIntensity != recovery.IntensityModerate {
		t.Errorf("Assess() = %+v, want the fallback assessment", a)
	}
	if assessed.Failure != llm.FailureTransport {
		t.Errorf("assessment Failure = %q, want %q", assessed.Failure, llm.FailureTransport)
	}

	result := svc.Recommend(ctx, "user", a, plan.Preferences{
		FocusArea:       plan.FocusFullBody,
		DurationMinutes: 45,
		Equipment:       []plan.Equipment{plan.EquipmentBodyweight, plan.EquipmentDumbbells},
	})
	if result.Failure != llm.FailureTransport {
		t.Errorf("plan Failure = %q, want %q", result.Failure, llm.FailureTransport)
	}
	if len(result.Plan.Exercises) != 5 {
		t.Errorf("got %d exercises, want 5", len(result.Plan.Exercises))
	}

	sess, err := svc.Accept(ctx, result)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !sess.FromFallback || len(sess.Exercises) != 5 || sess.Name != result.Plan.Name {
		t.Errorf("Accept() = %+v", sess)
	}
	if got := len(srv.Requests()); got != 2 {
		t.Errorf("backend received %d requests, want 2", got)
	}
}

func TestAssess_SourceError(t *testing.T) {
	boom := errors.New("export missing")
	svc := newCoach(t, staticSource{err: boom}, llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
		t.Error("backend called despite missing snapshot")
		return "", nil
	}))
	if _, _, err := svc.Assess(t.Context()); !errors.Is(err, boom) {
		t.Errorf("Assess() error = %v, want %v", err, boom)
	}
}

const validPlan = `{"name": "Fresh Plan", "type": "Strength", "duration": 45, "exercises": [
{"name": "Goblet Squats", "sets": 3, "reps": "10"},
{"name": "Push-ups", "sets": 3, "reps": "12"},
{"name": "Dumbbell Rows", "sets": 3, "reps": "10"}], "reasoning": "Fresh."}`

func TestRecommend_Superseded(t *testing.T) {
	started := make(chan struct{})
	var calls sync.WaitGroup
	completer := llm.CompleterFunc(func(ctx context.Context, messages []llm.Message) (string, error) {
		if strings.Contains(messages[1].Content, "Focus: Upper Body") {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return validPlan, nil
	})
	svc := newCoach(t, staticSource{}, completer)
	a := recovery.Fallback()

	var first plan.Result
	calls.Add(1)
	go func() {
		defer calls.Done()
		first = svc.Recommend(t.Context(), "browser-1", a, plan.Preferences{FocusArea: plan.FocusUpperBody})
	}()
	<-started

	second := svc.Recommend(t.Context(), "browser-1", a, plan.Preferences{FocusArea: plan.FocusLowerBody})
	calls.Wait()

	if first.Failure != llm.FailureCanceled {
		t.Errorf("first Failure = %q, want %q", first.Failure, llm.FailureCanceled)
	}
	if !errors.Is(first.Err, coach.ErrSuperseded) {
		t.Errorf("first Err = %v, want %v", first.Err, coach.ErrSuperseded)
	}
	if first.Plan.Name != "Upper Body Recovery Session" {
		t.Errorf("first Plan.Name = %q, want the fallback", first.Plan.Name)
	}
	if second.IsFallback() || second.Plan.Name != "Fresh Plan" {
		t.Errorf("second = %+v, want the generated plan", second)
	}
}

func TestRecommend_DifferentKeysRunIndependently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	completer := llm.CompleterFunc(func(ctx context.Context, messages []llm.Message) (string, error) {
		if strings.Contains(messages[1].Content, "Focus: Core") {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return validPlan, nil
	})
	svc := newCoach(t, staticSource{}, completer)

	done := make(chan plan.Result, 1)
	go func() {
		done <- svc.Recommend(t.Context(), "browser-1", recovery.Fallback(), plan.Preferences{FocusArea: plan.FocusCore})
	}()
	<-started

	other := svc.Recommend(t.Context(), "browser-2", recovery.Fallback(), plan.Preferences{})
	close(release)
	first := <-done

	if first.IsFallback() || other.IsFallback() {
		t.Errorf("results = %+v, %+v, want both generated", first, other)
	}
}
