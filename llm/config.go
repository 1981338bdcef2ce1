package llm

import (
	"errors"
	"fmt"
	"time"
)

type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

var ErrUnknownProvider = errors.New("unknown ai provider")

var defaultModels = map[Provider]string{
	ProviderAnthropic: "claude-3-haiku-20240307",
	ProviderOpenAI:    "gpt-4o",
	ProviderGemini:    "gemini-1.5-pro",
}

// APIKeyEnv names the environment variable holding each provider's key.
var APIKeyEnv = map[Provider]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGemini:    "GOOGLE_API_KEY",
}

type Config struct {
	Provider   Provider
	Model      string
	APIKey     string
	BaseURL    string
	Retries    int
	RetryDelay time.Duration
}

func DefaultModel(p Provider) string {
	return defaultModels[p]
}

// Normalize fills unset fields with provider defaults.
func (c *Config) Normalize() {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.Retries <= 0 {
		c.Retries = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

func (c *Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("ai config: api key is required (set %s)", APIKeyEnv[c.Provider])
	}
	return nil
}
