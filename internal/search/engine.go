package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/keyword"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/storage"
	"github.com/hyperjump/omoide/internal/vector"
)

// Engine is the retrieval core: it owns ingest, hybrid search, deletion and
// index rebuild. All dependencies are passed in explicitly; the engine holds
// no global state.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	cfg          *config.SearchConfig
	efSearch     int
	logger       *zap.Logger
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg *config.SearchConfig,
	efSearch int,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		cfg:          cfg,
		efSearch:     efSearch,
		logger:       logger,
	}
}

// Ingest embeds the text, persists the record, and indexes it. The record and
// its vector are written as one unit; when a later indexing step fails the
// record is rolled back so nothing is left half-ingested.
func (e *Engine) Ingest(ctx context.Context, text string) (*models.TextRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &models.EmptyInputError{}
	}

	// The provider call crosses the process boundary; no index lock is held here.
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	id, err := e.storage.Insert(ctx, text, vec)
	if err != nil {
		return nil, err
	}

	if err := e.vectorIndex.Insert(id, vec); err != nil {
		e.rollbackIngest(ctx, id, false)
		return nil, fmt.Errorf("vector index insert failed: %w", err)
	}
	if err := e.keywordIndex.Index(ctx, id, text); err != nil {
		e.rollbackIngest(ctx, id, true)
		return nil, fmt.Errorf("keyword index insert failed: %w", err)
	}

	rec, err := e.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// rollbackIngest undoes a partially indexed record.
func (e *Engine) rollbackIngest(ctx context.Context, id int64, vectorIndexed bool) {
	if vectorIndexed {
		e.vectorIndex.Remove(id)
	}
	if err := e.storage.Delete(ctx, id); err != nil {
		e.logger.Error("ingest rollback failed, record left unindexed",
			zap.Int64("id", id), zap.Error(err))
	}
}

// Search embeds the query, gathers vector and lexical candidates, and merges
// them into one ranked list. An empty result list is a normal outcome.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit > e.cfg.MaxLimit {
		query.Limit = e.cfg.MaxLimit
	}

	queryVec, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, err
	}

	vectorHits, err := e.vectorIndex.Search(queryVec, e.cfg.TopKCandidates, e.efSearch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	lexicalHits, err := e.keywordIndex.Search(ctx, query.Query, e.cfg.TopKCandidates)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	ranked := Rank(vectorHits, lexicalHits, RankOptions{
		SimilarityThreshold: e.cfg.SimilarityThreshold,
		IncludeLexicalOnly:  e.cfg.IncludeLexicalOnlyOrDefault(),
		VectorWeight:        e.cfg.VectorWeight,
		LexicalWeight:       e.cfg.LexicalWeight,
		Limit:               query.Limit,
	})

	results := make([]models.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		rec, err := e.storage.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			// Deleted between index lookup and here; skip rather than fail.
			continue
		}
		r.Text = rec.Text
		r.Rank = len(results) + 1
		results = append(results, r)
	}

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}

// Get returns the record for id, or nil when it does not exist.
func (e *Engine) Get(ctx context.Context, id int64) (*models.TextRecord, error) {
	return e.storage.Get(ctx, id)
}

// Delete removes a record and its index entries: lexical first, then vector
// (detaching its edges), then the stored record.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if err := e.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("keyword index delete failed: %w", err)
	}
	e.vectorIndex.Remove(id)
	return e.storage.Delete(ctx, id)
}

// RebuildIndexes replays every stored record into the vector and keyword
// indexes. The caller supplies freshly created (empty) indexes; the rebuilt
// graph satisfies the same degree and connectivity invariants as an
// incrementally built one without being byte-identical to it.
func (e *Engine) RebuildIndexes(ctx context.Context) (int, error) {
	count := 0
	err := e.storage.Scan(ctx, func(rec *models.TextRecord) error {
		if err := e.vectorIndex.Insert(rec.ID, rec.Vector); err != nil {
			return fmt.Errorf("rebuild: vector insert for id %d: %w", rec.ID, err)
		}
		if err := e.keywordIndex.Index(ctx, rec.ID, rec.Text); err != nil {
			return fmt.Errorf("rebuild: keyword insert for id %d: %w", rec.ID, err)
		}
		count++
		return nil
	})
	return count, err
}

// Stats reports store and index sizes, plus embedding cache counters when the
// embedder exposes them.
func (e *Engine) Stats(ctx context.Context) (map[string]any, error) {
	records, err := e.storage.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := map[string]any{
		"records":           records,
		"vector_index_size": e.vectorIndex.Size(),
	}
	if docs, err := e.keywordIndex.DocCount(); err == nil {
		stats["keyword_index_size"] = docs
	}
	if c, ok := e.embedder.(*embedding.CachedEmbedder); ok {
		s := c.Stats()
		stats["embed_cache_hits"] = s.Hits
		stats["embed_cache_misses"] = s.Misses
		stats["embed_provider_calls"] = s.ProviderCalls
	}
	return stats, nil
}
