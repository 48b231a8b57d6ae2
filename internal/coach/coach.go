// Package coach runs the recovery driven workout pipeline: health metrics to assessment, assessment to plan and
// plan to a trackable workout session.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/workout"
)

// ErrSuperseded is the cancellation cause of a plan request replaced by a newer one with the same key.
var ErrSuperseded = errors.NewSentinel("superseded by a newer request")

type Service struct {
	health    health.Source
	analyzer  *recovery.Analyzer
	generator *plan.Generator
	workouts  *workout.Service
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]*request
}

type request struct {
	cancel context.CancelCauseFunc
}

func NewService(
	source health.Source,
	analyzer *recovery.Analyzer,
	generator *plan.Generator,
	workouts *workout.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		health:    source,
		analyzer:  analyzer,
		generator: generator,
		workouts:  workouts,
		logger:    logger,
		mu:        sync.Mutex{},
		inflight:  make(map[string]*request),
	}
}

// Assess reads a fresh snapshot and analyzes it. Only a failing health source returns an error; analysis failures
// are reported through the fallback result.
func (s *Service) Assess(ctx context.Context) (health.Snapshot, recovery.Result, error) {
	snapshot, err := s.health.Snapshot(ctx)
	if err != nil {
		return health.Snapshot{}, recovery.Result{}, fmt.Errorf("read health snapshot: %w", err)
	}
	return snapshot, s.analyzer.Analyze(ctx, snapshot), nil
}

// Recommend generates a plan. A newer call with the same key cancels this one with [ErrSuperseded], in which case the
// fallback plan tagged as canceled is returned.
func (s *Service) Recommend(ctx context.Context, key string, a recovery.Assessment, prefs plan.Preferences) plan.Result {
	ctx, cancel := context.WithCancelCause(ctx)
	req := &request{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.inflight[key] = req
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[key] == req {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel(nil)
	}()

	result := s.generator.Generate(ctx, a, prefs)
	if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) && !errors.Is(result.Err, ErrSuperseded) {
		result.Err = errors.Join(result.Err, cause)
	}
	if errors.Is(result.Err, ErrSuperseded) {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "plan request superseded", slog.String("key", key))
	}
	return result
}

// Accept starts a session named after the plan and appends its materialized exercises.
func (s *Service) Accept(ctx context.Context, result plan.Result) (workout.Session, error) {
	sess, err := s.workouts.Start(ctx, result.Plan.Name)
	if err != nil {
		return workout.Session{}, fmt.Errorf("start session: %w", err)
	}
	if sess, err = s.workouts.AcceptPlan(ctx, sess.ID, result.Plan, result.IsFallback()); err != nil {
		return workout.Session{}, fmt.Errorf("accept plan: %w", err)
	}
	return sess, nil
}
