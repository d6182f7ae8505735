package cache

import (
	"testing"
	"time"
)

func TestTTLExpiry(t *testing.T) {
	c := NewTTL(time.Minute)
	current := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("costs:1", 42)
	if v, ok := c.Get("costs:1"); !ok || v.(int) != 42 {
		t.Fatalf("Get = %v/%v, want 42/true", v, ok)
	}

	current = current.Add(61 * time.Second)
	if _, ok := c.Get("costs:1"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestTTLInvalidate(t *testing.T) {
	c := NewTTL(time.Minute)
	c.Set("k", "v")
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived invalidation")
	}

	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived purge")
	}
}

func TestTTLMiss(t *testing.T) {
	c := NewTTL(time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("unexpected hit on missing key")
	}
}
