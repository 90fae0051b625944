package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	c.Set("batch-1/pnl", "statement")
	got, ok := c.Get("batch-1/pnl")
	if !ok || got != "statement" {
		t.Fatalf("Get = (%q, %v), want (statement, true)", got, ok)
	}

	if _, ok := c.Get("batch-1/forecast"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should not be returned")
	}

	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size after cleanup = %d, want 0", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)

	c.Set(Key("batch-1", "pnl"), 1)
	c.Set(Key("batch-1", "dashboard"), 2)
	c.Set(Key("batch-2", "pnl"), 3)

	if removed := c.DeletePrefix(BatchPrefix("batch-1")); removed != 2 {
		t.Errorf("DeletePrefix = %d, want 2", removed)
	}
	if _, ok := c.Get(Key("batch-2", "pnl")); !ok {
		t.Error("other batch entries must survive prefix invalidation")
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}
