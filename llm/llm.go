// Package llm adapts hosted language models to the plain prompt-in,
// text-out contract the chunker needs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

var ErrEmptyCompletion = errors.New("empty completion")

// Model generates completions with a langchaingo model.
type Model struct {
	llm        llms.Model
	log        *slog.Logger
	retries    int
	retryDelay time.Duration
}

func NewModel(m llms.Model, log *slog.Logger, retries int, retryDelay time.Duration) *Model {
	if log == nil {
		log = slog.Default()
	}
	if retries <= 0 {
		retries = 1
	}
	return &Model{
		llm:        m,
		log:        log.With("component", "llm"),
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// New connects to the configured provider.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Model, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		m   llms.Model
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		m, err = anthropic.New(opts...)
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err = openai.New(opts...)
	case ProviderGemini:
		m, err = googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(cfg.Model))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewModel(m, log, cfg.Retries, cfg.RetryDelay), nil
}

func (m *Model) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out string
	err := retryWithBackoff(ctx, m.retries, m.retryDelay, func(attempt int) error {
		opts := []llms.CallOption{llms.WithTemperature(0)}
		if maxTokens > 0 {
			opts = append(opts, llms.WithMaxTokens(maxTokens))
		}

		text, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt, opts...)
		if err != nil {
			m.log.Warn("completion failed", "attempt", attempt, "err", err)
			return err
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyCompletion
		}

		out = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	return out, nil
}

func retryWithBackoff(ctx context.Context, attempts int, delay time.Duration, op func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
