package cache

import (
	"context"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()
	_ = c.Set(ctx, "key1", []byte("value1"), time.Second)
	val, ok, err := c.Get(ctx, "key1")
	if err != nil || !ok || string(val) != "value1" {
		t.Fatalf("expected value1, got %q, exists=%v, err=%v", val, ok, err)
	}
}

func TestExpiration(t *testing.T) {
	c := NewMemoryStore()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	_ = c.Set(ctx, "key1", []byte("value1"), 100*time.Millisecond)
	now = now.Add(150 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "key1"); ok {
		t.Fatalf("expected expired key to return false")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped on read")
	}
}

func TestDelete(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()
	_ = c.Set(ctx, "key1", []byte("value1"), time.Second)
	_ = c.Delete(ctx, "key1")
	if _, ok, _ := c.Get(ctx, "key1"); ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()
	_ = c.Set(ctx, "contract-search:1", []byte("s1"), time.Second)
	_ = c.Set(ctx, "contract-search:2", []byte("s2"), time.Second)
	_ = c.Set(ctx, "contract-by-id:1", []byte("c1"), time.Second)
	_ = c.DeletePrefix(ctx, "contract-search:")
	_, ok1, _ := c.Get(ctx, "contract-search:1")
	_, ok2, _ := c.Get(ctx, "contract-search:2")
	_, ok3, _ := c.Get(ctx, "contract-by-id:1")
	if ok1 || ok2 {
		t.Fatalf("expected search keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected contract-by-id:1 to still exist")
	}
}

func TestSetCopiesValue(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, time.Second)
	buf[0] = 'x'
	val, _, _ := c.Get(ctx, "k")
	if string(val) != "abc" {
		t.Fatalf("store must not alias caller buffers, got %q", val)
	}
}
