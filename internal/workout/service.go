package workout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/sqlite"
)

const maxNameLength = 255

// Service is the session store. Each session is addressed explicitly by ID.
type Service struct {
	repo   *sqliteRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new workout service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	return &Service{
		repo:   newSQLiteRepository(db, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Start creates an empty session.
func (s *Service) Start(ctx context.Context, name string) (Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Workout"
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	sess := Session{
		ID:           uuid.NewString(),
		Name:         name,
		StartedAt:    s.now(),
		CompletedAt:  time.Time{},
		Reasoning:    "",
		FromFallback: false,
		Exercises:    []Exercise{},
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started workout session",
		slog.String("session_id", sess.ID), slog.String("name", sess.Name))
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// List returns up to limit sessions, most recent first.
func (s *Service) List(ctx context.Context, limit int) ([]Session, error) {
	sessions, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// AcceptPlan materializes p and appends the exercises to the session. Exercise IDs that already exist in the session
// are replaced with random ones so the same plan can be accepted twice.
func (s *Service) AcceptPlan(ctx context.Context, id string, p plan.WorkoutPlan, fromFallback bool) (Session, error) {
	exercises := Materialize(p)
	sess, err := s.repo.Update(ctx, id, func(sess *Session) (bool, error) {
		if sess.IsCompleted() {
			return false, ErrSessionCompleted
		}
		taken := make(map[string]bool, len(sess.Exercises)+len(exercises))
		for _, ex := range sess.Exercises {
			taken[ex.ID] = true
		}
		for i := range exercises {
			if taken[exercises[i].ID] {
				rekey(&exercises[i], uuid.NewString())
			}
			taken[exercises[i].ID] = true
		}
		sess.Exercises = append(sess.Exercises, exercises...)
		if sess.Reasoning == "" {
			sess.Reasoning = p.Reasoning
		}
		sess.FromFallback = sess.FromFallback || fromFallback
		return true, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("accept plan into session %s: %w", id, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "accepted plan",
		slog.String("session_id", id),
		slog.String("plan", p.Name),
		slog.Int("exercises", len(exercises)),
		slog.Bool("fallback", fromFallback))
	return sess, nil
}

func rekey(ex *Exercise, id string) {
	ex.ID = id
	for i := range ex.Sets {
		ex.Sets[i].ID = setID(id, ex.Sets[i].SetNumber)
	}
}

// UpdateSet records the weight and reps of a set. A nil value leaves the stored value untouched.
func (s *Service) UpdateSet(
	ctx context.Context,
	id string,
	exerciseID string,
	setNumber int,
	weightKg *float64,
	reps *int,
) (Session, error) {
	if weightKg != nil && *weightKg < 0 {
		return Session{}, errors.Wrap(ErrInvalidInput, "weight must not be negative", slog.Float64("weight_kg", *weightKg))
	}
	if reps != nil && *reps < 0 {
		return Session{}, errors.Wrap(ErrInvalidInput, "reps must not be negative", slog.Int("reps", *reps))
	}
	sess, err := s.updateSet(ctx, id, exerciseID, setNumber, func(set *Set) bool {
		if weightKg == nil && reps == nil {
			return false
		}
		if weightKg != nil {
			set.WeightKg = weightKg
		}
		if reps != nil {
			set.CompletedReps = reps
		}
		return true
	})
	if err != nil {
		return Session{}, fmt.Errorf("update set: %w", err)
	}
	return sess, nil
}

// ToggleSetCompletion flips the completed flag of a set.
func (s *Service) ToggleSetCompletion(ctx context.Context, id string, exerciseID string, setNumber int) (Session, error) {
	sess, err := s.updateSet(ctx, id, exerciseID, setNumber, func(set *Set) bool {
		set.Completed = !set.Completed
		return true
	})
	if err != nil {
		return Session{}, fmt.Errorf("toggle set completion: %w", err)
	}
	return sess, nil
}

func (s *Service) updateSet(
	ctx context.Context,
	id string,
	exerciseID string,
	setNumber int,
	fn func(set *Set) bool,
) (Session, error) {
	return s.repo.Update(ctx, id, func(sess *Session) (bool, error) {
		if sess.IsCompleted() {
			return false, ErrSessionCompleted
		}
		set, err := sess.findSet(exerciseID, setNumber)
		if err != nil {
			return false, err
		}
		return fn(set), nil
	})
}

// Complete ends the session. Completing a completed session is a no-op.
func (s *Service) Complete(ctx context.Context, id string) (Session, error) {
	sess, err := s.repo.Update(ctx, id, func(sess *Session) (bool, error) {
		if sess.IsCompleted() {
			return false, nil
		}
		sess.CompletedAt = s.now()
		return true, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("complete session %s: %w", id, err)
	}
	summary := sess.Summary(sess.CompletedAt)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "completed workout session",
		slog.String("session_id", id),
		slog.Duration("duration", summary.Duration),
		slog.Float64("volume_kg", summary.TotalVolumeKg),
		slog.Int("completed_sets", summary.CompletedSets))
	return sess, nil
}

// CountCompletedSince counts the sessions completed at or after since.
func (s *Service) CountCompletedSince(ctx context.Context, since time.Time) (int, error) {
	count, err := s.repo.CountCompletedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return count, nil
}
