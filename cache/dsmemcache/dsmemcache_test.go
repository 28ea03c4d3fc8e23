package dsmemcache

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/bradfitz/gomemcache/memcache"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

func setupMemcache(t *testing.T) *memcache.Client {
	t.Helper()

	addr := os.Getenv("MEMCACHE_ADDR")
	if addr == "" {
		t.Skip("MEMCACHE_ADDR is not set")
	}

	client := memcache.New(addr)
	t.Cleanup(func() {
		if err := client.FlushAll(); err != nil {
			t.Fatal(err)
		}
	})

	return client
}

func TestMemcache_Basic(t *testing.T) {
	ctx := context.Background()
	client := setupMemcache(t)

	var logs []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	mc := entitymemcache.New(New(client, WithLogger(logf)))

	key := dscache.IDKey("Data", 111, nil)
	b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	if !b.IsEmpty() || !b.IsCacheable() {
		t.Fatalf("unexpected: %v %v", b.IsEmpty(), b.IsCacheable())
	}
	b.SetNext(&dscache.Entity{Key: key, Properties: dscache.PropertyList{{Name: "Name", Value: "Data"}}})
	mc.PutAll(ctx, []*entitymemcache.Bucket{b})

	b = mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	if b.IsEmpty() {
		t.Fatalf("unexpected: %v", b.IsEmpty())
	}
	if v, _ := b.Entity().Properties.Get("Name"); v != "Data" {
		t.Errorf("unexpected: %v", v)
	}

	mc.Empty(ctx, []dscache.Key{key})

	expected := heredoc.Doc(`
		cache/dsmemcache.GetMulti: incoming len=1
		cache/dsmemcache.AddMulti: incoming len=1
		cache/dsmemcache.GetMulti: incoming len=1
		cache/dsmemcache.CompareAndSwapMulti: incoming len=1
		cache/dsmemcache.GetMulti: incoming len=1
		cache/dsmemcache.DeleteMulti: incoming len=1
	`)
	var s string
	for _, l := range logs {
		s += l + "\n"
	}
	if s != expected {
		t.Errorf("unexpected: %v", s)
	}
}

func TestMemcache_StaleToken(t *testing.T) {
	ctx := context.Background()
	client := setupMemcache(t)

	ch := New(client)
	if err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "dsmemcache:stale", Value: []byte("u")}}); err != nil {
		t.Fatal(err)
	}
	items, err := ch.GetMulti(ctx, []string{"dsmemcache:stale"})
	if err != nil {
		t.Fatal(err)
	}
	read := items["dsmemcache:stale"]

	if err := ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: read.Key, Value: []byte("1"), Token: read.Token}}); err != nil {
		t.Fatal(err)
	}
	err = ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: read.Key, Value: []byte("2"), Token: read.Token}})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrCASConflict {
		t.Errorf("unexpected: %v", err)
	}

	err = ch.AddMulti(ctx, []*entitymemcache.Item{{Key: read.Key, Value: []byte("3")}})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrNotStored {
		t.Errorf("unexpected: %v", err)
	}
}

func TestFanOut_Limit(t *testing.T) {
	var running, peak int32
	err := fanOut(4, 100, func(idx int) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		if idx == 7 {
			return entitymemcache.ErrNotStored
		}
		return nil
	})

	if v := atomic.LoadInt32(&peak); v > 4 || v < 1 {
		t.Errorf("unexpected: %v", v)
	}
	merr, ok := err.(dscache.MultiError)
	if !ok {
		t.Fatalf("unexpected: %v", err)
	}
	if len(merr) != 100 || merr[7] != entitymemcache.ErrNotStored || merr[6] != nil {
		t.Errorf("unexpected: %v", merr)
	}
}
