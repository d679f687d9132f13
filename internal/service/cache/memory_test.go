package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryStoreExpiresLazily(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	if err := store.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	clock.now = clock.now.Add(59 * time.Second)
	if got, ok, _ := store.GetBytes(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("expected hit before expiry, got %q ok=%v", got, ok)
	}

	clock.now = clock.now.Add(time.Second)
	if _, ok, _ := store.GetBytes(ctx, "k"); ok {
		t.Fatalf("expected miss at expiry")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read")
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	_ = store.SetBytes(ctx, "profile", []byte("{}"), 0)
	clock.now = clock.now.Add(365 * 24 * time.Hour)

	if _, ok, _ := store.GetBytes(ctx, "profile"); !ok {
		t.Fatalf("expected entry without ttl to persist")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	_ = store.SetBytes(ctx, "k", value, 0)
	value[0] = 'x'

	got, _, _ := store.GetBytes(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("store must not alias caller buffers, got %q", got)
	}
}

func TestJSONHelpersRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	if err := SetJSON(ctx, store, "p", payload{Name: "Lumine"}, 0); err != nil {
		t.Fatalf("set json failed: %v", err)
	}

	var out payload
	ok, err := GetJSON(ctx, store, "p", &out)
	if err != nil || !ok || out.Name != "Lumine" {
		t.Fatalf("unexpected result ok=%v err=%v out=%+v", ok, err, out)
	}

	ok, err = GetJSON(ctx, store, "missing", &out)
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
