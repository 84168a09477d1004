package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicops/chartquery/internal/cache"
	"github.com/clinicops/chartquery/internal/config"
	"github.com/clinicops/chartquery/internal/extract"
	"github.com/clinicops/chartquery/internal/llm"
	"github.com/clinicops/chartquery/internal/metrics"
	"github.com/clinicops/chartquery/internal/query"
	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
	"github.com/clinicops/chartquery/internal/summarizer"
	"github.com/clinicops/chartquery/internal/workflow"
)

// newGenerator builds the configured generation backend, wrapped with
// the completion cache when one is enabled.
func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	timeout, err := time.ParseDuration(cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm timeout %q: %w", cfg.LLM.Timeout, err)
	}

	gen, err := llm.NewGenerator(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     timeout,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return gen, nil
	}

	cleanupFreq, err := time.ParseDuration(cfg.Cache.CleanupFreq)
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency %q: %w", cfg.Cache.CleanupFreq, err)
	}

	store, err := cache.NewFileCache(
		cfg.Cache.Directory,
		cfg.Cache.MaxSizeMB,
		time.Duration(cfg.Cache.TTLHours)*time.Hour,
		cleanupFreq,
	)
	if err != nil {
		return nil, err
	}

	// Completions are scoped per backend so a model change never
	// replays another model's output.
	scope := cfg.LLM.Provider + "/" + cfg.LLM.Model

	return cache.NewCachedGenerator(gen, store, scope, 0, metrics.GenerationCacheTotal), nil
}

// newEngine assembles the question workflow over an opened record store.
func newEngine(
	ctx context.Context,
	cfg *config.Config,
	catalog *schema.Catalog,
	repo storage.Repository,
) (*workflow.Engine, error) {
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor := extract.New(metrics.InstrumentGenerator(gen, metrics.OpExtract), catalog)
	builder := query.NewBuilder(metrics.InstrumentGenerator(gen, metrics.OpQuery), catalog)
	summarize := summarizer.New(metrics.InstrumentGenerator(gen, metrics.OpSummary))

	return workflow.NewEngine(extractor, builder, repo, summarize, cfg.Workflow.MaxHops), nil
}
