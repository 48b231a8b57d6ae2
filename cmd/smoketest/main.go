package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/recoverfit/internal/e2etest"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/logging"
	"github.com/myrjola/recoverfit/internal/testhelpers"
)

// TestCoaching loads the recovery dashboard and asks for a plan with the default preferences. Fallback results count
// as success because the page still renders, but they are logged.
func TestCoaching(ctx context.Context, logger *slog.Logger, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	score := strings.TrimSpace(doc.Find("[data-testid='score']").Text())
	if score == "" {
		return errors.New("recovery score missing from home page")
	}
	if notice := strings.TrimSpace(doc.Find(".notice").Text()); notice != "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "assessment fell back", slog.String("notice", notice))
	}

	if doc, err = client.SubmitForm(ctx, doc, "/plans", nil); err != nil {
		return fmt.Errorf("submit preferences: %w", err)
	}
	if doc.Find(".exercises h2").Length() == 0 {
		return errors.New("plan has no exercises")
	}
	if notice := strings.TrimSpace(doc.Find(".notice").Text()); notice != "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "plan fell back", slog.String("notice", notice))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "coaching works",
		slog.String("score", score),
		slog.Int("exercises", doc.Find(".exercises h2").Length()))
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestCoaching(ctx, logger, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing coaching", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
