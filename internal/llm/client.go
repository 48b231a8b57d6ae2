package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// Config configures [Client].
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	// Timeout bounds every Complete call including the wait for a slot and retries. Zero disables it.
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int64
}

// Client is a [Completer] backed by openai-go.
type Client struct {
	client openai.Client
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewClient creates a completion client. MaxConcurrent below 1 is treated as 1.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Client{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger,
	}
}

// Complete sends messages and returns the content of the first choice. Failures are returned as [*Error].
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	// The timeout includes the wait for a free slot.
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", classify(ctx, errors.Wrap(err, "wait for completion slot"))
	}
	defer c.sem.Release(1)

	params := openai.ChatCompletionNewParams{ //nolint:exhaustruct // optional parameters left unset.
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    toParams(messages),
		Temperature: openai.Float(c.cfg.Temperature),
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, errors.Wrap(err, "chat completion", slog.String("model", c.cfg.Model)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.String("model", c.cfg.Model),
		slog.Int("messages", len(messages)),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)))

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: KindUnknown, StatusCode: 0, Retryable: false, Err: ErrEmptyResponse}
	}
	return completion.Choices[0].Message.Content, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		case RoleUser:
			params = append(params, openai.UserMessage(m.Content))
		default:
			panic(fmt.Sprintf("llm: unknown role %q", m.Role))
		}
	}
	return params
}
