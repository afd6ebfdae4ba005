package keyword

import (
	"context"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := map[int64]string{
		1: "red sneakers",
		2: "blue sneakers",
		3: "office chair",
	}
	for id, text := range docs {
		if err := idx.Index(ctx, id, text); err != nil {
			t.Fatalf("index %d failed: %v", id, err)
		}
	}

	results, err := idx.Search(ctx, "sneakers", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits for 'sneakers', got %d", len(results))
	}
	for _, r := range results {
		if r.ID != 1 && r.ID != 2 {
			t.Errorf("unexpected hit %d", r.ID)
		}
		if r.Score <= 0 {
			t.Errorf("rank score must be positive, got %v", r.Score)
		}
	}
}

func TestZeroMatchExcluded(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, 1, "office chair"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	results, err := idx.Search(ctx, "sneakers", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("text with zero matching terms must be excluded, got %v", results)
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, 1, "red sneakers"); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if err := idx.Delete(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	results, err := idx.Search(ctx, "sneakers", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted record must not match, got %v", results)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("doc count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty index, got %d docs", count)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i := int64(1); i <= 10; i++ {
		if err := idx.Index(ctx, i, "running shoes"); err != nil {
			t.Fatalf("index failed: %v", err)
		}
	}
	results, err := idx.Search(ctx, "shoes", 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}
