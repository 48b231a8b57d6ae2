package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/recoverfit/internal/e2etest"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/logging"
	"github.com/myrjola/recoverfit/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout      = 90 * time.Second
	successRateThreshold = 95.0
	percentageMultiplier = 100
	baseWeight           = 15.0
	weightRange          = 20
	baseReps             = 6
	repsRange            = 8
)

var focusAreas = []string{"Full Body", "Upper Body", "Lower Body", "Core", "Cardio"}

// WorkoutScenario walks one browser session through the whole flow: dashboard, plan, workout and summary.
func WorkoutScenario(ctx context.Context, client *e2etest.Client, logger *slog.Logger) error {
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}

	focus := focusAreas[rand.IntN(len(focusAreas))] //nolint:gosec // load pattern, not security.
	if doc, err = client.SubmitForm(ctx, doc, "/plans", map[string]string{"Focus area": focus}); err != nil {
		return fmt.Errorf("submit preferences: %w", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/workouts", nil); err != nil {
		return fmt.Errorf("start workout: %w", err)
	}
	workoutPath := doc.Url.Path
	if !strings.HasPrefix(workoutPath, "/workouts/") {
		return errors.New("start workout did not land on a workout", slog.String("path", workoutPath))
	}

	var actions []string
	doc.Find("form.set[data-type='normal']").Each(func(_ int, s *goquery.Selection) {
		actions = append(actions, s.AttrOr("action", ""))
	})
	for _, action := range actions {
		if doc, err = recordSet(ctx, client, doc, action); err != nil {
			return err
		}
	}

	if doc, err = client.SubmitForm(ctx, doc, workoutPath+"/complete", nil); err != nil {
		return fmt.Errorf("complete workout: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "scenario done",
		slog.String("focus", focus),
		slog.String("workout", workoutPath),
		slog.String("volume", strings.TrimSpace(doc.Find("[data-testid='volume']").Text())))
	return nil
}

func recordSet(ctx context.Context, client *e2etest.Client, doc *goquery.Document, action string) (*goquery.Document, error) {
	//nolint:gosec // load pattern, not security.
	values := map[string]string{
		"Weight (kg)": strconv.FormatFloat(baseWeight+float64(rand.IntN(weightRange)), 'f', -1, 64),
		"Reps":        strconv.Itoa(baseReps + rand.IntN(repsRange)),
	}
	doc, err := client.SubmitForm(ctx, doc, action, values)
	if err != nil {
		return nil, fmt.Errorf("save set %s: %w", action, err)
	}
	if doc, err = client.PostForm(ctx, action, map[string][]string{"action": {"toggle"}}); err != nil {
		return nil, fmt.Errorf("toggle set %s: %w", action, err)
	}
	return doc, nil
}

// RunLoadTest runs one scenario per simulated user with at most concurrency scenarios in flight.
func RunLoadTest(ctx context.Context, url string, users, concurrency int, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "starting load test",
		slog.Int("users", users),
		slog.Int("concurrency", concurrency))

	var successCount, failureCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()
			scenarioCtx = logging.WithAttrs(scenarioCtx, slog.Int("user", i))

			// Every user gets their own cookie jar and therefore their own session.
			client, err := e2etest.NewClient(url)
			if err == nil {
				err = WorkoutScenario(scenarioCtx, client, logger)
			}
			if err != nil {
				failureCount.Add(1)
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "scenario failed", errors.SlogError(err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(users) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))
	if successRate < successRateThreshold {
		return fmt.Errorf("success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	users := flag.Int("users", 20, "number of simulated users")               //nolint:mnd // default
	concurrency := flag.Int("concurrency", 5, "scenarios running in parallel") //nolint:mnd // default
	flag.Parse()
	if flag.NArg() != 1 {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest [-users n] [-concurrency n] <hostname>")
		os.Exit(1)
	}

	var (
		hostname = flag.Arg(0)
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}

	if err = RunLoadTest(ctx, url, *users, *concurrency, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)))
}
