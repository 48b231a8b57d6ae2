package workout

import (
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/ptr"
)

var (
	ErrNotFound         = errors.NewSentinel("not found")
	ErrSessionCompleted = errors.NewSentinel("workout session already completed")
	ErrInvalidInput     = errors.NewSentinel("invalid input")
)

type SetType string

const (
	SetTypeNormal SetType = "normal"
	SetTypeWarmup SetType = "warmup"
)

// Set is one trackable set. WeightKg and CompletedReps stay nil until the user enters them.
type Set struct {
	ID            string
	SetNumber     int
	Type          SetType
	TargetReps    int
	WeightKg      *float64
	CompletedReps *int
	Completed     bool
	RestSeconds   int
}

// Exercise owns its sets.
type Exercise struct {
	ID          string
	Name        string
	MuscleGroup string
	Equipment   string
	Notes       string
	Sets        []Set
}

// Session is a workout in progress or a completed one. A zero CompletedAt means the session is still active.
type Session struct {
	ID           string
	Name         string
	StartedAt    time.Time
	CompletedAt  time.Time
	Reasoning    string
	FromFallback bool
	Exercises    []Exercise
}

func (s Session) IsCompleted() bool {
	return !s.CompletedAt.IsZero()
}

// Summary is computed when a session is completed.
type Summary struct {
	Duration      time.Duration
	TotalVolumeKg float64
	TotalSets     int
	CompletedSets int
}

// Summary totals the session. The duration runs until now for an active session. Volume adds up weight times
// entered reps and ignores sets where either is missing.
func (s Session) Summary(now time.Time) Summary {
	end := now
	if s.IsCompleted() {
		end = s.CompletedAt
	}
	sum := Summary{Duration: end.Sub(s.StartedAt), TotalVolumeKg: 0, TotalSets: 0, CompletedSets: 0}
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			sum.TotalSets++
			if set.Completed {
				sum.CompletedSets++
			}
			// A set without weight or reps adds nothing.
			sum.TotalVolumeKg += ptr.Deref(set.WeightKg, 0) * float64(ptr.Deref(set.CompletedReps, 0))
		}
	}
	return sum
}

func (s *Session) findSet(exerciseID string, setNumber int) (*Set, error) {
	for i := range s.Exercises {
		if s.Exercises[i].ID != exerciseID {
			continue
		}
		for j := range s.Exercises[i].Sets {
			if s.Exercises[i].Sets[j].SetNumber == setNumber {
				return &s.Exercises[i].Sets[j], nil
			}
		}
		return nil, errors.Wrap(ErrNotFound, "find set")
	}
	return nil, errors.Wrap(ErrNotFound, "find exercise")
}
