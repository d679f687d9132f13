package render

import (
	"context"
	"testing"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/service/cache"
	"go.uber.org/zap"
)

func TestCacheKeyIncludesUser(t *testing.T) {
	if got := CacheKey("800000001", "10000002"); got != "enka:render:800000001:10000002" {
		t.Fatalf("unexpected key %q", got)
	}
	if CacheKey("800000001", "10000002") == CacheKey("700000001", "10000002") {
		t.Fatalf("different users must not share a key")
	}
}

func TestCachePutAndExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore().WithClock(func() time.Time { return now })
	c := NewCache(store, zap.NewNop())
	ctx := context.Background()

	if err := c.Put(ctx, "800000001", "10000002", []byte("png"), 5*time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	artifact, ok, err := c.Get(ctx, "800000001", "10000002")
	if err != nil || !ok || string(artifact) != "png" {
		t.Fatalf("expected hit, got %q %v %v", artifact, ok, err)
	}
	if _, ok, _ := c.Get(ctx, "700000001", "10000002"); ok {
		t.Fatalf("other user must miss")
	}

	now = now.Add(5*time.Minute + time.Second)
	if _, ok, _ := c.Get(ctx, "800000001", "10000002"); ok {
		t.Fatalf("expected expiry after ttl")
	}
}

func TestCachePutShortTTLIsNoop(t *testing.T) {
	store := cache.NewMemoryStore()
	c := NewCache(store, zap.NewNop())

	if err := c.Put(context.Background(), "800000001", "10000002", []byte("png"), 59*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("short ttl must not store, have %d entries", store.Len())
	}
}
