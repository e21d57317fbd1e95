package cache

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := NewTTLCache[string, int](0)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with value 1, got ok=%v v=%v", ok, v)
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len=1, got %d", c.Len())
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := NewTTLCache[string, string](time.Second)

	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	base = base.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	c.PurgeExpired()
	if c.Len() != 0 {
		t.Fatalf("expected Len=0 after purge, got %d", c.Len())
	}
}

func TestTTLCache_DeleteFunc(t *testing.T) {
	c := NewTTLCache[string, int](time.Minute)
	c.Set("ws-1|u-1", 1)
	c.Set("ws-1|u-2", 2)
	c.Set("ws-2|u-1", 3)

	c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "ws-1|") })
	if c.Len() != 1 {
		t.Fatalf("expected Len=1, got %d", c.Len())
	}
	if _, ok := c.Get("ws-2|u-1"); !ok {
		t.Fatalf("expected unrelated key to survive")
	}
	c.Delete("ws-2|u-1")
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := NewTTLCache[int, int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 100; r++ {
				c.Set(i, r)
				_, _ = c.Get(i)
			}
		}()
	}
	wg.Wait()
	if c.Len() != 50 {
		t.Fatalf("expected 50 keys, got %d", c.Len())
	}
}
