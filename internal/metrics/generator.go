package metrics

import (
	"context"
	"time"

	"github.com/clinicops/chartquery/internal/llm"
)

// InstrumentedGenerator counts and times the calls of an inner generator
// under a fixed operation label.
type InstrumentedGenerator struct {
	inner     llm.Generator
	operation string
}

// InstrumentGenerator wraps a generator so its calls show up in the
// generation metrics.
func InstrumentGenerator(inner llm.Generator, operation string) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, operation: operation}
}

// Generate delegates to the inner generator and records the outcome.
func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	completion, err := g.inner.Generate(ctx, prompt)

	GenerationRequestDuration.WithLabelValues(g.operation).Observe(time.Since(start).Seconds())

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	GenerationRequestsTotal.WithLabelValues(g.operation, status).Inc()

	return completion, err
}
