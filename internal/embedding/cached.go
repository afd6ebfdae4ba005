package embedding

import (
	"context"
	"sync/atomic"

	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/pkg/utils"
)

// CachedEmbedder wraps a provider with a cache as an explicit pipeline:
// normalize, cache lookup, provider call, cache fill. Provider failures are
// propagated untouched and never cached. Concurrent requests for the same
// uncached text may each call the provider; provider calls are idempotent so
// no deduplication is attempted.
type CachedEmbedder struct {
	provider Embedder
	cache    Cache

	hits          atomic.Int64
	misses        atomic.Int64
	providerCalls atomic.Int64
}

// Stats reports cache hit/miss and provider call counts since construction.
// The hit path must be observable separately from the miss path for latency
// and quota testing.
type Stats struct {
	Hits          int64
	Misses        int64
	ProviderCalls int64
}

// NewCachedEmbedder wraps provider with cache.
func NewCachedEmbedder(provider Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{provider: provider, cache: cache}
}

// Embed returns the embedding for text, from cache when warm.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, _, err := e.EmbedCached(ctx, text)
	return vec, err
}

// EmbedCached returns the embedding and whether it was served from cache.
// Blank text after trimming is an input error, never a zero vector.
func (e *CachedEmbedder) EmbedCached(ctx context.Context, text string) ([]float32, bool, error) {
	key := utils.NormalizeText(text)
	if key == "" {
		return nil, false, &models.EmptyInputError{}
	}

	if vec, ok := e.cache.Get(ctx, key); ok {
		e.hits.Add(1)
		return vec, true, nil
	}
	e.misses.Add(1)

	e.providerCalls.Add(1)
	vec, err := e.provider.Embed(ctx, key)
	if err != nil {
		return nil, false, err
	}

	e.cache.Set(ctx, key, vec)
	return vec, false, nil
}

// EmbedBatch embeds each text through the cache path.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the provider's embedding dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.provider.Dimensions()
}

// Stats returns a snapshot of the cache counters.
func (e *CachedEmbedder) Stats() Stats {
	return Stats{
		Hits:          e.hits.Load(),
		Misses:        e.misses.Load(),
		ProviderCalls: e.providerCalls.Load(),
	}
}

// Close closes the cache and the underlying provider.
func (e *CachedEmbedder) Close() error {
	cacheErr := e.cache.Close()
	if err := e.provider.Close(); err != nil {
		return err
	}
	return cacheErr
}
