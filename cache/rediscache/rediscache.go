package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

var _ entitymemcache.Storage = &cacheHandler{}

const defaultExpiration = 15 * time.Minute

// Every entry is a hash of its version and value.
// Versions come from one counter, so a re-added key never reuses the version of a deleted one.
var addScript = redis.NewScript(2, `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local ver = redis.call("INCR", KEYS[2])
redis.call("HMSET", KEYS[1], "ver", ver, "val", ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

var casScript = redis.NewScript(2, `
local cur = redis.call("HGET", KEYS[1], "ver")
if not cur then
  return -1
end
if cur ~= ARGV[3] then
  return 0
end
local ver = redis.call("INCR", KEYS[2])
redis.call("HMSET", KEYS[1], "ver", ver, "val", ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// New returns a cache tier backed by Redis.
func New(pool *redis.Pool, opts ...CacheOption) entitymemcache.Storage {
	ch := &cacheHandler{
		pool:           pool,
		expireDuration: defaultExpiration,
		versionKey:     "mercari:rediscache:version",
	}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return ch
}

type cacheHandler struct {
	pool           *redis.Pool
	expireDuration time.Duration
	versionKey     string
	logf           func(ctx context.Context, format string, args ...interface{})
}

type CacheOption interface {
	Apply(*cacheHandler)
}

func (ch *cacheHandler) GetMulti(ctx context.Context, keys []string) (map[string]*entitymemcache.Item, error) {
	ch.logf(ctx, "cache/rediscache.GetMulti: incoming len=%d", len(keys))

	conn, err := ch.pool.GetContext(ctx)
	if err != nil {
		ch.logf(ctx, "cache/rediscache.GetMulti: pool.GetContext err=%s", err.Error())
		return nil, err
	}
	defer conn.Close()

	err = conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `cache/rediscache.GetMulti: conn.Send("MULTI") err=%s`, err.Error())
		return nil, err
	}
	for _, key := range keys {
		err := conn.Send("HMGET", key, "ver", "val")
		if err != nil {
			ch.logf(ctx, `cache/rediscache.GetMulti: conn.Send("HMGET", "%s") err=%s`, key, err.Error())
			return nil, err
		}
	}

	resp, err := redis.Values(conn.Do("EXEC"))
	if err != nil {
		ch.logf(ctx, `cache/rediscache.GetMulti: conn.Do("EXEC") err=%s`, err.Error())
		return nil, err
	}

	result := make(map[string]*entitymemcache.Item, len(keys))
	for idx, r := range resp {
		fields, err := redis.Values(r, nil)
		if err != nil || len(fields) != 2 || fields[0] == nil {
			continue
		}
		ver, err := redis.String(fields[0], nil)
		if err != nil {
			continue
		}
		val, err := redis.Bytes(fields[1], nil)
		if err != nil {
			continue
		}
		result[keys[idx]] = &entitymemcache.Item{
			Key:   keys[idx],
			Value: val,
			Token: ver,
		}
	}

	return result, nil
}

func (ch *cacheHandler) AddMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.logf(ctx, "cache/rediscache.AddMulti: incoming len=%d", len(items))

	return ch.runScript(ctx, "AddMulti", addScript, items, func(item *entitymemcache.Item) []interface{} {
		return []interface{}{item.Key, ch.versionKey, item.Value, ch.expireMillis()}
	})
}

func (ch *cacheHandler) CompareAndSwapMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.logf(ctx, "cache/rediscache.CompareAndSwapMulti: incoming len=%d", len(items))

	return ch.runScript(ctx, "CompareAndSwapMulti", casScript, items, func(item *entitymemcache.Item) []interface{} {
		return []interface{}{item.Key, ch.versionKey, item.Value, ch.expireMillis(), fmt.Sprint(item.Token)}
	})
}

func (ch *cacheHandler) runScript(ctx context.Context, name string, script *redis.Script, items []*entitymemcache.Item, args func(item *entitymemcache.Item) []interface{}) error {
	conn, err := ch.pool.GetContext(ctx)
	if err != nil {
		ch.logf(ctx, "cache/rediscache.%s: pool.GetContext err=%s", name, err.Error())
		return err
	}
	defer conn.Close()

	err = conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `cache/rediscache.%s: conn.Send("MULTI") err=%s`, name, err.Error())
		return err
	}
	for _, item := range items {
		err := script.Send(conn, args(item)...)
		if err != nil {
			ch.logf(ctx, `cache/rediscache.%s: script.Send("%s") err=%s`, name, item.Key, err.Error())
			return err
		}
	}

	results, err := redis.Ints(conn.Do("EXEC"))
	if err != nil {
		ch.logf(ctx, `cache/rediscache.%s: conn.Do("EXEC") err=%s`, name, err.Error())
		return err
	}

	merr := make(dscache.MultiError, len(items))
	var hasErr bool
	for idx, r := range results {
		switch r {
		case 1:
			continue
		case 0:
			if script == addScript {
				merr[idx] = entitymemcache.ErrNotStored
			} else {
				merr[idx] = entitymemcache.ErrCASConflict
			}
		default:
			merr[idx] = entitymemcache.ErrNotStored
		}
		hasErr = true
	}
	if hasErr {
		return merr
	}

	return nil
}

func (ch *cacheHandler) DeleteMulti(ctx context.Context, keys []string) error {
	ch.logf(ctx, "cache/rediscache.DeleteMulti: incoming len=%d", len(keys))

	conn, err := ch.pool.GetContext(ctx)
	if err != nil {
		ch.logf(ctx, "cache/rediscache.DeleteMulti: pool.GetContext err=%s", err.Error())
		return err
	}
	defer conn.Close()

	err = conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `cache/rediscache.DeleteMulti: conn.Send("MULTI") err=%s`, err.Error())
		return err
	}

	for _, key := range keys {
		err = conn.Send("DEL", key)
		if err != nil {
			ch.logf(ctx, `cache/rediscache.DeleteMulti: conn.Send("DEL", "%s") err=%s`, key, err.Error())
			return err
		}
	}

	_, err = conn.Do("EXEC")
	if err != nil {
		ch.logf(ctx, `cache/rediscache.DeleteMulti: conn.Send("EXEC") err=%s`, err.Error())
		return err
	}

	return nil
}

func (ch *cacheHandler) expireMillis() int64 {
	if ch.expireDuration <= 0 {
		return 0
	}
	return int64(ch.expireDuration / time.Millisecond)
}

// WithExpireDuration sets the expiration of every item. 0 or less means no expiration.
func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(o *cacheHandler) {
	o.expireDuration = w.d
}

// WithVersionKey changes the name of the version counter.
func WithVersionKey(key string) CacheOption {
	return &withVersionKey{key}
}

type withVersionKey struct{ key string }

func (w *withVersionKey) Apply(o *cacheHandler) {
	o.versionKey = w.key
}

// WithLogger creates a CacheOption that uses the specified logger.
func WithLogger(logf func(ctx context.Context, format string, args ...interface{})) CacheOption {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogger) Apply(o *cacheHandler) {
	o.logf = w.logf
}
