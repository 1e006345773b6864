package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("a", "alpha")
	if got, ok := c.Get("a"); !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLRUCacheGetOrCompute(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	calls := 0
	compute := func() int {
		calls++
		return 42
	}

	if got := c.GetOrCompute("k", compute); got != 42 {
		t.Errorf("GetOrCompute = %d, want 42", got)
	}
	if got := c.GetOrCompute("k", compute); got != 42 {
		t.Errorf("GetOrCompute = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Purge()

	if c.Size() != 0 {
		t.Errorf("Size() after purge = %d, want 0", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected purge to drop all entries")
	}
	c.Set("c", 3)
	if got, ok := c.Get("c"); !ok || got != 3 {
		t.Error("cache must remain usable after purge")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Errorf("CleanExpired() = %d, want 2", cleaned)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestManagerPurgeAll(t *testing.T) {
	m := NewManager()
	a := NewLRUCache[int](10, time.Minute)
	b := NewLRUCache[string](10, time.Minute)
	m.Register(a)
	m.Register(b)

	a.Set("x", 1)
	b.Set("y", "two")

	m.PurgeAll()

	if a.Size() != 0 || b.Size() != 0 {
		t.Errorf("sizes after PurgeAll = %d, %d; want 0, 0", a.Size(), b.Size())
	}
}
