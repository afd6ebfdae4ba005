package embedding

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache(2, 0)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set(ctx, "a", []float32{1, 2, 3})
	got, ok := c.Get(ctx, "a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("unexpected value %v", got)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2, 0)
	ctx := context.Background()

	c.Set(ctx, "a", []float32{1})
	c.Set(ctx, "b", []float32{2})
	// Touch a so b is the oldest.
	c.Get(ctx, "a")
	c.Set(ctx, "c", []float32{3})

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("c should still be cached")
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "a", []float32{1})
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected miss after TTL expiry")
	}
	// The expired entry is dropped, not refreshed.
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, cache has %d entries", c.Len())
	}
}

func TestLRUCacheUpdateExisting(t *testing.T) {
	c := NewLRUCache(2, 0)
	ctx := context.Background()

	c.Set(ctx, "a", []float32{1})
	c.Set(ctx, "a", []float32{2})
	got, ok := c.Get(ctx, "a")
	if !ok || got[0] != 2 {
		t.Errorf("expected updated value 2, got %v (hit=%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}
