// Package llm provides the text-generation capability behind identifier
// extraction, field resolution, query generation, and summarization. The
// workflow depends on nothing beyond Generate: one prompt in, one text
// completion out, every call fallible.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/clinicops/chartquery/internal/errors"
)

// Generator is the single capability the pipeline consumes. Callers decide
// how a fault degrades (absence, template rewrite, or error terminal);
// implementations never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider constants for supported backends
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Model constants for common models
const (
	ModelGeminiFlash = "gemini-2.0-flash"
	ModelGeminiPro   = "gemini-1.5-pro"
	ModelGPT4oMini   = "gpt-4o-mini"
	ModelGPT4o       = "gpt-4o"
)

// Config represents generation backend configuration
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// NewGenerator builds the configured backend. The context is only used to
// initialize the client, not to bound later Generate calls.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig,
			"unsupported llm provider: %s", cfg.Provider).
			WithSuggestion("Supported providers are gemini and openai")
	}
}

// withTimeout bounds a generation call when a timeout is configured.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, timeout)
}
