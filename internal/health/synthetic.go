package health

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	minSteps         = 5000
	stepsSpread      = 5000
	minBPM           = 60
	bpmSpread        = 40
	minSleepHours    = 6
	sleepHoursSpread = 3
	heartRateSamples = 20
	sampleInterval   = 5 * time.Minute
)

// SyntheticSource generates plausible random metrics in place of a device health API.
type SyntheticSource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	history WorkoutHistory
	now     func() time.Time
}

// NewSyntheticSource creates a generator. A non-zero seed makes the sequence of snapshots reproducible.
// history may be nil, in which case no recent workouts are reported.
func NewSyntheticSource(seed uint64, history WorkoutHistory, now func() time.Time) *SyntheticSource {
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // synthetic metrics.
	}
	if now == nil {
		now = time.Now
	}
	return &SyntheticSource{
		mu:      sync.Mutex{},
		rng:     rand.New(rand.NewPCG(seed, seed)), //nolint:gosec // synthetic metrics.
		history: history,
		now:     now,
	}
}

// Snapshot returns steps in [5000, 10000), 20 heart rate samples in [60, 100) bpm spaced five minutes apart and
// ending now, and 6, 7 or 8 hours of sleep.
func (s *SyntheticSource) Snapshot(ctx context.Context) (Snapshot, error) {
	now := s.now()
	count, err := recentWorkouts(ctx, s.history, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count recent workouts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]HeartRateSample, heartRateSamples)
	for i := range samples {
		end := now.Add(-time.Duration(heartRateSamples-1-i) * sampleInterval)
		samples[i] = HeartRateSample{
			BPM:   minBPM + s.rng.IntN(bpmSpread),
			Start: end.Add(-sampleInterval),
			End:   end,
		}
	}
	return Snapshot{
		Steps:              minSteps + s.rng.IntN(stepsSpread),
		HeartRate:          samples,
		SleepHours:         float64(minSleepHours + s.rng.IntN(sleepHoursSpread)),
		RecentWorkoutCount: count,
	}, nil
}
