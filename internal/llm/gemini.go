package llm

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/clinicops/chartquery/internal/errors"
)

// GeminiClient generates completions through the Google GenAI API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrTypeConfig, "gemini API key is required").
			WithSuggestion("Set CHARTQUERY_LLM_API_KEY in the environment")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "failed to create gemini client")
	}

	model := cfg.Model
	if model == "" {
		model = ModelGeminiFlash
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}, nil
}

// Generate requests one completion. A single attempt: faults surface to the
// caller, which degrades per its own contract.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New(errors.ErrTypeGeneration, "prompt is empty")
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(c.temperature),
		})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "gemini completion failed")
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New(errors.ErrTypeGeneration, "gemini returned an empty completion")
	}

	return text, nil
}

// Close is a no-op; the underlying genai client holds no resources that
// need explicit release.
func (c *GeminiClient) Close() error {
	return nil
}
