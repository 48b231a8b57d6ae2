// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request overruns its
// time budget.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	defaultCooldown = 30 * time.Minute
)

// Config configures the Recorder. Zero values pick the defaults.
type Config struct {
	// TracesDirectory is created if missing.
	TracesDirectory string
	MinAge          time.Duration
	MaxBytes        uint64
	// Cooldown is the minimum time between two captures.
	Cooldown time.Duration
}

type Recorder struct {
	logger    *slog.Logger
	recorder  *trace.FlightRecorder
	directory string
	cooldown  time.Duration
	now       func() time.Time
	// lastCapture is the Unix time of the latest capture.
	lastCapture atomic.Int64
}

// New creates a Recorder. Call Start to begin recording.
func New(cfg Config, logger *slog.Logger) (*Recorder, error) {
	if cfg.TracesDirectory == "" {
		return nil, errors.New("traces directory is required")
	}
	stat, err := os.Stat(cfg.TracesDirectory)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(cfg.TracesDirectory, 0o750); err != nil { //nolint:mnd // rwxr-x---
			return nil, errors.Wrap(err, "create traces directory")
		}
	case err != nil:
		return nil, errors.Wrap(err, "stat traces directory")
	case !stat.IsDir():
		return nil, errors.New("traces path is not a directory", slog.String("path", cfg.TracesDirectory))
	}

	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}

	return &Recorder{
		logger: logger,
		recorder: trace.NewFlightRecorder(trace.FlightRecorderConfig{
			MinAge:   cfg.MinAge,
			MaxBytes: cfg.MaxBytes,
		}),
		directory:   cfg.TracesDirectory,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
		lastCapture: atomic.Int64{},
	}, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("directory", r.directory),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the buffered trace to <reason>-<timestamp>.trace. A nil Recorder or a capture within the cooldown
// is a no-op. It returns the path of the written file, or "" when nothing was written.
func (r *Recorder) Capture(ctx context.Context, reason string) string {
	if r == nil || !r.recorder.Enabled() {
		return ""
	}

	now := r.now()
	last := r.lastCapture.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.Time("last_capture", time.Unix(last, 0)))
		return ""
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return ""
	}

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	if err := r.writeTrace(path); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "trace capture failed", errors.SlogError(err))
		return ""
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("reason", reason),
		slog.String("file", path))
	return path
}

func (r *Recorder) writeTrace(path string) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the configured directory.
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file", slog.String("file", path)))
		}
	}()
	if _, err = r.recorder.WriteTo(f); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
