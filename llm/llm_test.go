package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

type flakyModel struct {
	failures int
	calls    int
	answer   string
}

func (m *flakyModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.calls <= m.failures {
		return nil, errors.New("overloaded")
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *flakyModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_Generate(t *testing.T) {
	m := NewModel(fake.NewFakeLLM([]string{`{"chunks": []}`}), discard(), 1, 0)

	out, err := m.Generate(context.Background(), "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, `{"chunks": []}`, out)
}

func Test_Generate_Retries(t *testing.T) {
	backend := &flakyModel{failures: 2, answer: "ok"}
	m := NewModel(backend, discard(), 3, time.Millisecond)

	out, err := m.Generate(context.Background(), "prompt", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, backend.calls)
}

func Test_Generate_GivesUp(t *testing.T) {
	backend := &flakyModel{failures: 5}
	m := NewModel(backend, discard(), 2, time.Millisecond)

	_, err := m.Generate(context.Background(), "prompt", 0)
	require.Error(t, err)
	assert.Equal(t, 2, backend.calls)
}

func Test_Generate_EmptyCompletion(t *testing.T) {
	m := NewModel(fake.NewFakeLLM([]string{"   "}), discard(), 1, 0)

	_, err := m.Generate(context.Background(), "prompt", 0)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func Test_Generate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &flakyModel{answer: "ok"}
	m := NewModel(backend, discard(), 3, time.Millisecond)

	_, err := m.Generate(ctx, "prompt", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, backend.calls)
}

func Test_Config(t *testing.T) {
	cfg := Config{APIKey: "k"}
	cfg.Normalize()
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Model)
	require.NoError(t, cfg.Validate())

	cfg = Config{Provider: "mistral", APIKey: "k"}
	cfg.Normalize()
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownProvider)

	cfg = Config{Provider: ProviderGemini}
	cfg.Normalize()
	assert.Equal(t, "gemini-1.5-pro", cfg.Model)
	assert.ErrorContains(t, cfg.Validate(), "GOOGLE_API_KEY")
}

func Test_New_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderOpenAI}, discard())
	assert.Error(t, err)
}
