package llm

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/clinicops/chartquery/internal/errors"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "openai with API key",
			config: Config{
				Provider: ProviderOpenAI,
				Model:    ModelGPT4oMini,
				APIKey:   "test-key",
			},
			wantErr: false,
		},
		{
			name: "openai with base URL only",
			config: Config{
				Provider: ProviderOpenAI,
				Model:    ModelGPT4oMini,
				BaseURL:  "http://localhost:11434/v1",
			},
			wantErr: false,
		},
		{
			name: "openai without key or base URL",
			config: Config{
				Provider: ProviderOpenAI,
				Model:    ModelGPT4oMini,
			},
			wantErr: true,
		},
		{
			name: "gemini without key",
			config: Config{
				Provider: ProviderGemini,
				Model:    ModelGeminiFlash,
			},
			wantErr: true,
		},
		{
			name: "provider is case insensitive",
			config: Config{
				Provider: "OpenAI",
				Model:    ModelGPT4oMini,
				APIKey:   "test-key",
			},
			wantErr: false,
		},
		{
			name: "unsupported provider",
			config: Config{
				Provider: "bard",
				Model:    "test-model",
				APIKey:   "test-key",
			},
			wantErr: true,
		},
		{
			name:    "empty provider",
			config:  Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(context.Background(), tt.config)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGenerator() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && gen == nil {
				t.Error("NewGenerator() returned nil generator without error")
			}
		})
	}
}

func TestNewGeneratorUnsupportedProviderErrType(t *testing.T) {
	_, err := NewGenerator(context.Background(), Config{Provider: "bard"})
	if err == nil {
		t.Fatal("Expected error for unsupported provider, got nil")
	}

	if !apperrors.IsType(err, apperrors.ErrTypeConfig) {
		t.Errorf("Expected config error type, got %s", apperrors.GetType(err))
	}
}

func TestWithTimeout(t *testing.T) {
	base := context.Background()

	ctx, cancel := withTimeout(base, 0)
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Error("Expected no deadline when timeout is zero")
	}

	ctx, cancel = withTimeout(base, 30*time.Second)
	defer cancel()

	if _, ok := ctx.Deadline(); !ok {
		t.Error("Expected a deadline when timeout is positive")
	}
}
