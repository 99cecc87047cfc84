package cache

import (
	"context"
	"testing"
	"time"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "key", payload{Name: "clip", Count: 2}, time.Time{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	ok, err := store.Get(ctx, "key", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("expected entry present")
	}
	if got.Name != "clip" || got.Count != 2 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	store := NewMemoryStore()

	var got payload
	ok, err := store.Get(context.Background(), "missing", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "key", payload{Name: "clip"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	if ok, _ := store.Get(ctx, "key", &got); !ok {
		t.Fatal("expected live entry before expiry")
	}

	store.WithNowFunc(func() time.Time { return time.Now().Add(2 * time.Hour) })

	if ok, _ := store.Get(ctx, "key", &got); ok {
		t.Fatal("expected entry expired")
	}
}

func TestMemoryStoreZeroExpiryPersists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "key", payload{Name: "clip"}, time.Time{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	store.WithNowFunc(func() time.Time { return time.Now().Add(1000 * time.Hour) })

	var got payload
	if ok, _ := store.Get(ctx, "key", &got); !ok {
		t.Fatal("expected entry without expiry to persist")
	}
}
