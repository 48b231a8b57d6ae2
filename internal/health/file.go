package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type snapshotFile struct {
	Steps      int               `yaml:"steps"`
	SleepHours float64           `yaml:"sleep_hours"`
	HeartRate  []HeartRateSample `yaml:"heart_rate"`
	// RecentWorkouts overrides the count from the workout history when set.
	RecentWorkouts *int `yaml:"recent_workouts"`
}

// FileSource reads a YAML snapshot exported from a health device. The file is read on every call so a newer export
// is picked up without a restart.
//
//	steps: 7200
//	sleep_hours: 7.5
//	heart_rate:
//	  - bpm: 64
//	    start: 2026-10-19T06:55:00Z
//	    end: 2026-10-19T07:00:00Z
type FileSource struct {
	path    string
	history WorkoutHistory
	now     func() time.Time
}

// NewFileSource creates a source reading path. history may be nil.
func NewFileSource(path string, history WorkoutHistory, now func() time.Time) *FileSource {
	if now == nil {
		now = time.Now
	}
	return &FileSource{path: path, history: history, now: now}
}

func (s *FileSource) Snapshot(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read health file: %w", err)
	}
	var f snapshotFile
	if err = yaml.Unmarshal(data, &f); err != nil {
		return Snapshot{}, fmt.Errorf("parse health file %s: %w", s.path, err)
	}
	if f.Steps < 0 || f.SleepHours < 0 {
		return Snapshot{}, fmt.Errorf("health file %s: steps and sleep_hours must not be negative", s.path)
	}
	for i, sample := range f.HeartRate {
		if sample.BPM <= 0 {
			return Snapshot{}, fmt.Errorf("health file %s: heart_rate[%d]: bpm must be positive", s.path, i)
		}
	}

	count := 0
	if f.RecentWorkouts != nil {
		count = *f.RecentWorkouts
	} else if count, err = recentWorkouts(ctx, s.history, s.now()); err != nil {
		return Snapshot{}, fmt.Errorf("count recent workouts: %w", err)
	}

	return Snapshot{
		Steps:              f.Steps,
		HeartRate:          f.HeartRate,
		SleepHours:         f.SleepHours,
		RecentWorkoutCount: count,
	}, nil
}
