package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, "a", []byte("one"), 50*time.Millisecond)
	if v, ok := s.Get(ctx, "a"); !ok || string(v) != "one" {
		t.Fatalf("expected hit with %q, got ok=%v v=%q", "one", ok, v)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := s.Get(ctx, "a"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, "appointments:list:1", []byte("x"), time.Minute)
	s.Set(ctx, "appointments:list:2", []byte("y"), time.Minute)
	s.Set(ctx, "clients:list", []byte("z"), time.Minute)

	s.DeletePrefix(ctx, "appointments:")

	if _, ok := s.Get(ctx, "appointments:list:1"); ok {
		t.Fatal("expected appointments keys to be purged")
	}
	if _, ok := s.Get(ctx, "clients:list"); !ok {
		t.Fatal("expected unrelated keys to survive")
	}
}

func TestMemoryStoreIgnoresNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, "a", []byte("one"), 0)
	if _, ok := s.Get(ctx, "a"); ok {
		t.Fatal("zero TTL must not cache")
	}
}
