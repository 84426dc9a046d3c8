package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache[string](3, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Get("a") // a becomes most recent
	c.Set("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("unexpected size %d", c.Size())
	}
}

func TestLRUExpiryAndTouch(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)
	c.Set("kept", 1)
	c.Set("dropped", 2)

	clock.advance(40 * time.Second)
	if _, ok := c.Touch("kept"); !ok {
		t.Fatalf("kept should be live")
	}
	clock.advance(40 * time.Second)

	if _, ok := c.Get("dropped"); ok {
		t.Fatalf("dropped should have expired")
	}
	if v, ok := c.Get("kept"); !ok || v != 1 {
		t.Fatalf("touched entry should have a fresh TTL")
	}
}

func TestCleanExpiredAndManager(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if c.Size() != 1 {
		t.Fatalf("unexpected size %d", c.Size())
	}
	m.Stop() // never started: must not block
	m.Stop()
}
