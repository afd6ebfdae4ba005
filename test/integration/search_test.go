// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/keyword"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/search"
	"github.com/hyperjump/omoide/internal/storage"
	"github.com/hyperjump/omoide/internal/vector"
)

func TestIntegration_IngestSearchDelete(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "records.db"),
			BleveIndexPath: filepath.Join(dir, "bleve"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 32},
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewCachedEmbedder(
		embedding.NewMockEmbedder(cfg.Embedding.Dimensions),
		embedding.NewLRUCache(cfg.Cache.Size, 0),
	)
	defer embedder.Close()

	vecIndex := vector.NewHNSW(cfg.Embedding.Dimensions, func(o *vector.Options) {
		o.M = cfg.Index.M
		o.EFConstruction = cfg.Index.EFConstruction
	})

	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	engine := search.NewEngine(store, embedder, vecIndex, kwIndex, &cfg.Search, cfg.Index.EFSearch, zap.NewNop())
	ctx := context.Background()

	texts := []string{
		"Machine learning algorithms learn from data.",
		"Semantic search uses embeddings to find similar content.",
		"Sourdough needs a long cold fermentation.",
	}
	ids := make([]int64, 0, len(texts))
	for _, text := range texts {
		rec, err := engine.Ingest(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: texts[1], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total < 1 {
		t.Fatalf("expected at least 1 result, got %d", resp.Total)
	}
	if resp.Results[0].ID != ids[1] {
		t.Errorf("expected record %d first, got %d", ids[1], resp.Results[0].ID)
	}

	// The query was embedded once at ingest time, so search hits the cache.
	if stats := embedder.Stats(); stats.Hits == 0 {
		t.Errorf("expected a cache hit for the repeated text, stats %+v", stats)
	}

	if err := engine.Delete(ctx, ids[1]); err != nil {
		t.Fatal(err)
	}
	resp, err = engine.Search(ctx, &models.SearchQuery{Query: texts[1], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.ID == ids[1] {
			t.Error("deleted record still in results")
		}
	}
}
