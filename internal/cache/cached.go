package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicops/chartquery/internal/llm"
	"github.com/clinicops/chartquery/internal/logging"
)

// CachedGenerator wraps a generation backend with a read-through
// completion cache. Cache faults never fail a generation call: the
// request falls through to the backend and the response is served
// uncached.
type CachedGenerator struct {
	inner      llm.Generator
	cache      Cache
	scope      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
}

// NewCachedGenerator decorates inner with store. The scope string is
// folded into every key so completions from different providers or
// models never collide. cacheTotal is a counter vec with label "result"
// ("hit"/"miss") and may be nil.
func NewCachedGenerator(
	inner llm.Generator,
	store Cache,
	scope string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
) *CachedGenerator {
	return &CachedGenerator{
		inner:      inner,
		cache:      store,
		scope:      scope,
		ttl:        ttl,
		cacheTotal: cacheTotal,
	}
}

// Generate returns the cached completion for the prompt when present,
// otherwise calls the backend once and caches the result.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := g.scope + "\n" + prompt

	data, err := g.cache.Get(ctx, key)
	if err == nil {
		g.incCache("hit")
		return string(data), nil
	}

	g.incCache("miss")

	if !errors.Is(err, ErrMiss) {
		logging.Warnf("completion cache read failed: %v", err)
	}

	text, err := g.inner.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := g.cache.Set(ctx, key, []byte(text), g.ttl); err != nil {
		logging.Warnf("failed to cache completion: %v", err)
	}

	return text, nil
}

func (g *CachedGenerator) incCache(result string) {
	if g.cacheTotal != nil {
		g.cacheTotal.WithLabelValues(result).Inc()
	}
}
