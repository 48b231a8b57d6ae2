// Package health supplies the raw metrics the recovery analysis is based on.
package health

import (
	"context"
	"time"
)

// HeartRateSample is one heart rate reading covering [Start, End].
type HeartRateSample struct {
	BPM   int       `yaml:"bpm"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// Snapshot holds the inputs of one recovery analysis. HeartRate is chronological and may be empty.
type Snapshot struct {
	Steps              int
	HeartRate          []HeartRateSample
	SleepHours         float64
	RecentWorkoutCount int
}

// AverageHeartRate is the arithmetic mean of the samples, or 0 without samples.
func (s Snapshot) AverageHeartRate() float64 {
	if len(s.HeartRate) == 0 {
		return 0
	}
	sum := 0
	for _, sample := range s.HeartRate {
		sum += sample.BPM
	}
	return float64(sum) / float64(len(s.HeartRate))
}

// Source supplies a fresh snapshot on demand.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// WorkoutHistory counts the workouts completed since a point in time.
type WorkoutHistory interface {
	CountCompletedSince(ctx context.Context, since time.Time) (int, error)
}

// RecentWindow is the trailing window counted into Snapshot.RecentWorkoutCount.
const RecentWindow = 7 * 24 * time.Hour

func recentWorkouts(ctx context.Context, history WorkoutHistory, now time.Time) (int, error) {
	if history == nil {
		return 0, nil
	}
	return history.CountCompletedSince(ctx, now.Add(-RecentWindow))
}
