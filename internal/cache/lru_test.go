package cache

import (
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](2, 0)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry b should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Errorf("Keys() = %v, want a first", keys)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	now = now.Add(30 * time.Second)
	c.Set("y", 3)

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("x"); ok {
		t.Error("x should have expired")
	}
	if v, ok := c.Get("y"); !ok || v != 3 {
		t.Errorf("Get(y) = %d, %v", v, ok)
	}

	now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](0, 0)
	c.now = func() time.Time { return now }
	c.Set("x", 1)

	now = now.Add(24 * 365 * time.Hour)
	if _, ok := c.Get("x"); !ok {
		t.Error("entry with zero ttl expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("CleanExpired() = %d, want 0", removed)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := NewLRUCache[int](0, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if c.Size() != 1 {
		t.Errorf("Size() = %d after delete, want 1", c.Size())
	}
	c.Clear()
	if c.Size() != 0 || len(c.Keys()) != 0 {
		t.Error("Clear() left entries")
	}
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](0, time.Second)
	c.now = func() time.Time { return now }
	c.Set("x", 1)

	var reported int
	m := NewManager(func(n int) { reported = n })
	m.Register(c)

	now = now.Add(2 * time.Second)
	if got := m.Sweep(); got != 1 || reported != 1 {
		t.Errorf("Sweep() = %d, reported %d, want 1", got, reported)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()

	m.StartCleanup(time.Hour)
	m.Stop()
}
