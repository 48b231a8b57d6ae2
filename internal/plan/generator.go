package plan

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/logging"
	"github.com/myrjola/recoverfit/internal/recovery"
)

// Generator asks the completion backend for a workout plan.
type Generator struct {
	completer llm.Completer
	logger    *slog.Logger
	now       func() time.Time
	nonce     func() string
}

func NewGenerator(completer llm.Completer, logger *slog.Logger) *Generator {
	return &Generator{
		completer: completer,
		logger:    logger,
		now:       time.Now,
		nonce:     uuid.NewString,
	}
}

// Generate never fails. Any failure yields [Fallback] tagged with the failure kind.
func (g *Generator) Generate(ctx context.Context, a recovery.Assessment, prefs Preferences) Result {
	prefs = prefs.WithDefaults()
	budget := BudgetFor(prefs.DurationMinutes)
	ctx = logging.WithAttrs(ctx,
		slog.String("focus", string(prefs.FocusArea)),
		slog.Int("duration", prefs.DurationMinutes))

	messages := []llm.Message{
		llm.System(systemPrompt),
		llm.User(Prompt(a, prefs, g.now(), g.nonce())),
	}
	reply, err := g.completer.Complete(ctx, messages)
	if err != nil {
		return g.fallback(ctx, a, prefs, budget, llm.ClassifyFailure(err), err)
	}

	p, kind, err := Repair(reply, budget)
	if err != nil {
		return g.fallback(ctx, a, prefs, budget, kind, err)
	}
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = prefs.DurationMinutes
	}

	g.logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.String("name", p.Name),
		slog.Int("exercises", len(p.Exercises)))
	return Result{Plan: p, Budget: budget, Failure: llm.FailureNone, Err: nil}
}

func (g *Generator) fallback(
	ctx context.Context,
	a recovery.Assessment,
	prefs Preferences,
	budget Budget,
	kind llm.FailureKind,
	err error,
) Result {
	g.logger.LogAttrs(ctx, slog.LevelWarn, "using fallback plan",
		slog.String("failure", string(kind)), errors.SlogError(err))
	return Result{Plan: Fallback(a, prefs), Budget: budget, Failure: kind, Err: err}
}
