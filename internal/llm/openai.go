package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/clinicops/chartquery/internal/errors"
)

// OpenAIClient generates completions through the OpenAI chat API or any
// compatible endpoint reachable via a base URL override.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
	maxTokens   int
}

// NewOpenAIClient creates an OpenAI-backed generator. An empty API key is
// accepted only when a base URL points at a local compatible server.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, apperrors.New(apperrors.ErrTypeConfig, "openai API key is required").
			WithSuggestion("Set CHARTQUERY_LLM_API_KEY in the environment")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = ModelGPT4oMini
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate requests one completion. A single attempt: faults surface to the
// caller, which degrades per its own contract.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperrors.New(apperrors.ErrTypeGeneration, "prompt is empty")
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrTypeGeneration, "openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperrors.New(apperrors.ErrTypeGeneration, "openai returned an empty completion")
	}

	return text, nil
}

// Close is a no-op; the underlying HTTP client holds no resources that
// need explicit release.
func (c *OpenAIClient) Close() error {
	return nil
}

// parseAPIError maps transport errors onto the project taxonomy with
// status detail preserved where the API supplies it.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperrors.Wrap(err, apperrors.ErrTypeGeneration,
			fmt.Sprintf("openai request failed with status %d", reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.Wrap(err, apperrors.ErrTypeGeneration,
			fmt.Sprintf("openai API error (%s): %s", apiErr.Type, apiErr.Message))
	}

	return apperrors.Wrap(err, apperrors.ErrTypeGeneration, "openai completion failed")
}
