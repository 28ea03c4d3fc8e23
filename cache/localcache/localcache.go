package localcache

import (
	"context"
	"sync"
	"time"

	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

var _ entitymemcache.Storage = &CacheHandler{}

const defaultExpiration = 3 * time.Minute

// New returns an in-process cache tier.
func New(opts ...CacheOption) *CacheHandler {
	ch := &CacheHandler{
		cache: make(map[string]cacheItem),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.expireDuration == 0 {
		ch.expireDuration = defaultExpiration
	}
	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return ch
}

// CacheHandler keeps cache items in a map.
// Every write draws a fresh version from one counter, and the version is the token.
type CacheHandler struct {
	cache   map[string]cacheItem
	m       sync.Mutex
	version uint64

	expireDuration time.Duration
	now            func() time.Time
	logf           func(ctx context.Context, format string, args ...interface{})
}

type CacheOption interface {
	Apply(*CacheHandler)
}

type cacheItem struct {
	value      []byte
	version    uint64
	setAt      time.Time
	expiration time.Duration
}

func (ch *CacheHandler) HasCache(cacheKey string) bool {
	ch.m.Lock()
	defer ch.m.Unlock()
	_, ok := ch.cache[cacheKey]
	return ok
}

func (ch *CacheHandler) CacheKeys() []string {
	ch.m.Lock()
	defer ch.m.Unlock()

	list := make([]string, 0, len(ch.cache))
	for keyStr := range ch.cache {
		list = append(list, keyStr)
	}

	return list
}

func (ch *CacheHandler) CacheLen() int {
	ch.m.Lock()
	defer ch.m.Unlock()
	return len(ch.cache)
}

func (ch *CacheHandler) FlushLocalCache() {
	ch.m.Lock()
	defer ch.m.Unlock()
	ch.cache = make(map[string]cacheItem)
}

// lookup must be called with ch.m held.
func (ch *CacheHandler) lookup(cacheKey string, now time.Time) (cacheItem, bool) {
	cItem, ok := ch.cache[cacheKey]
	if !ok {
		return cacheItem{}, false
	}
	if !cItem.setAt.Add(cItem.expiration).After(now) {
		delete(ch.cache, cacheKey)
		return cacheItem{}, false
	}
	return cItem, true
}

func (ch *CacheHandler) store(cacheKey string, value []byte, now time.Time) {
	ch.version++
	ch.cache[cacheKey] = cacheItem{
		value:      append([]byte(nil), value...),
		version:    ch.version,
		setAt:      now,
		expiration: ch.expireDuration,
	}
}

func (ch *CacheHandler) GetMulti(ctx context.Context, keys []string) (map[string]*entitymemcache.Item, error) {
	ch.m.Lock()
	defer ch.m.Unlock()

	ch.logf(ctx, "cache/localcache.GetMulti: len=%d", len(keys))

	now := ch.now()
	result := make(map[string]*entitymemcache.Item, len(keys))
	for _, key := range keys {
		cItem, ok := ch.lookup(key, now)
		if !ok {
			continue
		}
		result[key] = &entitymemcache.Item{
			Key:   key,
			Value: cItem.value,
			Token: cItem.version,
		}
	}

	return result, nil
}

func (ch *CacheHandler) AddMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.m.Lock()
	defer ch.m.Unlock()

	ch.logf(ctx, "cache/localcache.AddMulti: len=%d", len(items))

	now := ch.now()
	merr := make(dscache.MultiError, len(items))
	var hasErr bool
	for idx, item := range items {
		if _, ok := ch.lookup(item.Key, now); ok {
			merr[idx] = entitymemcache.ErrNotStored
			hasErr = true
			continue
		}
		ch.store(item.Key, item.Value, now)
	}
	if hasErr {
		return merr
	}

	return nil
}

func (ch *CacheHandler) CompareAndSwapMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.m.Lock()
	defer ch.m.Unlock()

	ch.logf(ctx, "cache/localcache.CompareAndSwapMulti: len=%d", len(items))

	now := ch.now()
	merr := make(dscache.MultiError, len(items))
	var hasErr bool
	for idx, item := range items {
		cItem, ok := ch.lookup(item.Key, now)
		if !ok {
			merr[idx] = entitymemcache.ErrNotStored
			hasErr = true
			continue
		}
		if token, ok := item.Token.(uint64); !ok || token != cItem.version {
			merr[idx] = entitymemcache.ErrCASConflict
			hasErr = true
			continue
		}
		ch.store(item.Key, item.Value, now)
	}
	if hasErr {
		return merr
	}

	return nil
}

func (ch *CacheHandler) DeleteMulti(ctx context.Context, keys []string) error {
	ch.m.Lock()
	defer ch.m.Unlock()

	ch.logf(ctx, "cache/localcache.DeleteMulti: len=%d", len(keys))

	for _, key := range keys {
		delete(ch.cache, key)
	}

	return nil
}

// WithExpireDuration sets the lifetime of every item.
func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(o *CacheHandler) {
	o.expireDuration = w.d
}

// WithLogger creates a CacheOption that uses the specified logger.
func WithLogger(logf func(ctx context.Context, format string, args ...interface{})) CacheOption {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogger) Apply(o *CacheHandler) {
	o.logf = w.logf
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return &withClock{now}
}

type withClock struct{ now func() time.Time }

func (w *withClock) Apply(o *CacheHandler) {
	o.now = w.now
}
