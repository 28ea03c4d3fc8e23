package rediscache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gomodule/redigo/redis"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

func setupRedis(t *testing.T) *redis.Pool {
	t.Helper()

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST is not set")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	pool := &redis.Pool{
		MaxIdle:     2,
		IdleTimeout: 10 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", host+":"+port)
		},
	}
	t.Cleanup(func() {
		conn := pool.Get()
		defer conn.Close()
		if _, err := conn.Do("FLUSHALL"); err != nil {
			t.Fatal(err)
		}
		pool.Close()
	})

	return pool
}

func TestRedisCache_Basic(t *testing.T) {
	ctx := context.Background()
	pool := setupRedis(t)

	var logs []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	mc := entitymemcache.New(New(pool, WithLogger(logf)))

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
		cache/rediscache.GetMulti: incoming len=1
		cache/rediscache.AddMulti: incoming len=1
		cache/rediscache.GetMulti: incoming len=1
		cache/rediscache.CompareAndSwapMulti: incoming len=1
		cache/rediscache.GetMulti: incoming len=1
		cache/rediscache.DeleteMulti: incoming len=1
	`)
	var s string
	for _, l := range logs {
		s += l + "\n"
	}
	if s != expected {
		t.Errorf("unexpected: %v", s)
	}
}

func TestRedisCache_TokenNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	pool := setupRedis(t)

	ch := New(pool)
	add := func() *entitymemcache.Item {
		if err := ch.AddMulti(ctx, []*entitymemcache.Item{{Key: "rediscache:a", Value: []byte("u")}}); err != nil {
			t.Fatal(err)
		}
		items, err := ch.GetMulti(ctx, []string{"rediscache:a"})
		if err != nil {
			t.Fatal(err)
		}
		return items["rediscache:a"]
	}

	stale := add()
	if err := ch.DeleteMulti(ctx, []string{"rediscache:a"}); err != nil {
		t.Fatal(err)
	}
	fresh := add()
	if stale.Token == fresh.Token {
		t.Fatalf("unexpected: %v", fresh.Token)
	}

	err := ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: stale.Key, Value: []byte("x"), Token: stale.Token}})
	if merr, ok := err.(dscache.MultiError); !ok || merr[0] != entitymemcache.ErrCASConflict {
		t.Errorf("unexpected: %v", err)
	}
	err = ch.CompareAndSwapMulti(ctx, []*entitymemcache.Item{{Key: fresh.Key, Value: []byte("y"), Token: fresh.Token}})
	if err != nil {
		t.Fatal(err)
	}
}
