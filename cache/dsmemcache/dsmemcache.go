package dsmemcache

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"golang.org/x/sync/errgroup"
)

var _ entitymemcache.Storage = &cacheHandler{}

// New returns a cache tier that talks to memcached through client.
func New(client *memcache.Client, opts ...CacheOption) entitymemcache.Storage {
	ch := &cacheHandler{
		client:      client,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return ch
}

const defaultConcurrency = 16

type cacheHandler struct {
	client         *memcache.Client
	expireDuration time.Duration
	concurrency    int
	logf           func(ctx context.Context, format string, args ...interface{})
}

// A CacheOption is an cache option for a dsmemcache tier.
type CacheOption interface {
	Apply(*cacheHandler)
}

func (ch *cacheHandler) GetMulti(ctx context.Context, keys []string) (map[string]*entitymemcache.Item, error) {
	ch.logf(ctx, "cache/dsmemcache.GetMulti: incoming len=%d", len(keys))

	itemMap, err := ch.client.GetMulti(keys)
	if err != nil {
		ch.logf(ctx, "cache/dsmemcache: error on memcache.GetMulti %s", err.Error())
		return nil, err
	}

	result := make(map[string]*entitymemcache.Item, len(itemMap))
	for key, item := range itemMap {
		result[key] = &entitymemcache.Item{
			Key:   key,
			Value: item.Value,
			Token: item,
		}
	}

	return result, nil
}

func (ch *cacheHandler) AddMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.logf(ctx, "cache/dsmemcache.AddMulti: incoming len=%d", len(items))

	return fanOut(ch.concurrency, len(items), func(idx int) error {
		item := items[idx]
		err := ch.client.Add(&memcache.Item{
			Key:        item.Key,
			Value:      item.Value,
			Expiration: int32(ch.expireDuration.Seconds()),
		})
		return convertError(err)
	})
}

func (ch *cacheHandler) CompareAndSwapMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.logf(ctx, "cache/dsmemcache.CompareAndSwapMulti: incoming len=%d", len(items))

	return fanOut(ch.concurrency, len(items), func(idx int) error {
		item := items[idx]
		read, ok := item.Token.(*memcache.Item)
		if !ok || read == nil {
			return entitymemcache.ErrNotStored
		}
		// the copy keeps the cas id of the item that was read.
		mi := *read
		mi.Value = item.Value
		mi.Expiration = int32(ch.expireDuration.Seconds())
		return convertError(ch.client.CompareAndSwap(&mi))
	})
}

func (ch *cacheHandler) DeleteMulti(ctx context.Context, keys []string) error {
	ch.logf(ctx, "cache/dsmemcache.DeleteMulti: incoming len=%d", len(keys))

	err := fanOut(ch.concurrency, len(keys), func(idx int) error {
		err := ch.client.Delete(keys[idx])
		if err == memcache.ErrCacheMiss {
			return nil
		}
		return err
	})
	if err != nil {
		ch.logf(ctx, "cache/dsmemcache: error on memcache.Delete %s", err.Error())
	}

	return err
}

// fanOut runs f for every index, at most limit at a time, and collects the errors by index.
func fanOut(limit, n int, f func(idx int) error) error {
	merr := make(dscache.MultiError, n)
	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for idx := 0; idx < n; idx++ {
		idx := idx
		eg.Go(func() error {
			merr[idx] = f(idx)
			return nil
		})
	}
	_ = eg.Wait()

	for _, err := range merr {
		if err != nil {
			return merr
		}
	}

	return nil
}

func convertError(err error) error {
	switch err {
	case nil:
		return nil
	case memcache.ErrNotStored:
		return entitymemcache.ErrNotStored
	case memcache.ErrCASConflict:
		return entitymemcache.ErrCASConflict
	case memcache.ErrCacheMiss:
		return entitymemcache.ErrNotStored
	default:
		return err
	}
}

// WithExpireDuration sets the expiration of every item written to memcached.
func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(o *cacheHandler) {
	o.expireDuration = w.d
}

// WithConcurrency caps the number of memcached calls one batch runs at once.
// n <= 0 means no cap.
func WithConcurrency(n int) CacheOption {
	return &withConcurrency{n}
}

type withConcurrency struct{ n int }

func (w *withConcurrency) Apply(o *cacheHandler) {
	o.concurrency = w.n
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
