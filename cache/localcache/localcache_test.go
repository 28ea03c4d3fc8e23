package localcache

import (
	"context"
	"testing"
	"time"

	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

func TestLocalCache_AddAndCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	ch := New()

	err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("1")}})
	if err != nil {
		t.Fatal(err)
	}

	err = ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("2")}, {Key: "b", Value: []byte("3")}})
	merr, ok := err.(dscache.MultiError)
	if !ok {
		t.Fatalf("unexpected: %T", err)
	}
	if merr[0] != entitymemcache.ErrNotStored || merr[1] != nil {
		t.Errorf("unexpected: %v", merr)
	}

	items, err := ch.GetMulti(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(items); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := string(items["a"].Value); v != "1" {
		t.Errorf("unexpected: %v", v)
	}

	// first swap wins, second one holds a stale token.
	fresh := &entitymemcache.Item{Key: "a", Value: []byte("x"), Token: items["a"].Token}
	stale := &entitymemcache.Item{Key: "a", Value: []byte("y"), Token: items["a"].Token}
	if err := ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{fresh}); err != nil {
		t.Fatal(err)
	}
	err = ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{stale})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrCASConflict {
		t.Errorf("unexpected: %v", err)
	}

	items, err = ch.GetMulti(ctx, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if v := string(items["a"].Value); v != "x" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestLocalCache_CompareAndSwapAfterDelete(t *testing.T) {
	ctx := context.Background()
	ch := New()

	if err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("1")}}); err != nil {
		t.Fatal(err)
	}
	items, err := ch.GetMulti(ctx, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.DeleteMulti(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}

	err = ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("2"), Token: items["a"].Token}})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrNotStored {
		t.Errorf("unexpected: %v", err)
	}
	if ch.HasCache("a") {
		t.Errorf("unexpected: %v", ch.CacheKeys())
	}

	// a re-added item has a new token, the old one stays stale.
	if err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("3")}}); err != nil {
		t.Fatal(err)
	}
	err = ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("2"), Token: items["a"].Token}})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrCASConflict {
		t.Errorf("unexpected: %v", err)
	}
}

func TestLocalCache_Expiration(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	ch := New(
		WithExpireDuration(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	if err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "a", Value: []byte("1")}}); err != nil {
		t.Fatal(err)
	}
	if v := ch.CacheLen(); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}

	now = now.Add(2 * time.Minute)

	items, err := ch.GetMulti(ctx, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(items); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
	if v := ch.CacheLen(); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
}
