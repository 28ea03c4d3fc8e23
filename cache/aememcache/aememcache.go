package aememcache

import (
	"context"
	"time"

	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"google.golang.org/appengine"
	"google.golang.org/appengine/memcache"
)

var _ entitymemcache.Storage = &cacheHandler{}

// New returns a cache tier backed by App Engine memcache.
// The context passed to each call must be an App Engine context.
func New(opts ...CacheOption) entitymemcache.Storage {
	ch := &cacheHandler{}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return ch
}

type cacheHandler struct {
	expireDuration time.Duration
	logf           func(ctx context.Context, format string, args ...interface{})
}

// A CacheOption is an cache option for a aememcache tier.
type CacheOption interface {
	Apply(*cacheHandler)
}

func (ch *cacheHandler) GetMulti(ctx context.Context, keys []string) (map[string]*entitymemcache.Item, error) {
	ch.logf(ctx, "cache/aememcache.GetMulti: incoming len=%d", len(keys))

	itemMap, err := memcache.GetMulti(ctx, keys)
	if err != nil {
		ch.logf(ctx, "cache/aememcache: error on memcache.GetMulti %s", err.Error())
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
	ch.logf(ctx, "cache/aememcache.AddMulti: incoming len=%d", len(items))

	itemList := make([]*memcache.Item, 0, len(items))
	for _, item := range items {
		itemList = append(itemList, &memcache.Item{
			Key:        item.Key,
			Value:      item.Value,
			Expiration: ch.expireDuration,
		})
	}

	return ch.convertError(ctx, memcache.AddMulti(ctx, itemList))
}

func (ch *cacheHandler) CompareAndSwapMulti(ctx context.Context, items []*entitymemcache.Item) error {
	ch.logf(ctx, "cache/aememcache.CompareAndSwapMulti: incoming len=%d", len(items))

	merr := make(dscache.MultiError, len(items))
	itemList := make([]*memcache.Item, 0, len(items))
	indexes := make([]int, 0, len(items))
	for idx, item := range items {
		read, ok := item.Token.(*memcache.Item)
		if !ok || read == nil {
			merr[idx] = entitymemcache.ErrNotStored
			continue
		}
		// the copy keeps the cas id of the item that was read.
		mi := *read
		mi.Value = item.Value
		mi.Expiration = ch.expireDuration
		itemList = append(itemList, &mi)
		indexes = append(indexes, idx)
	}

	if len(itemList) != 0 {
		err := ch.convertError(ctx, memcache.CompareAndSwapMulti(ctx, itemList))
		if cerr, ok := err.(dscache.MultiError); ok {
			for i, err := range cerr {
				merr[indexes[i]] = err
			}
		} else if err != nil {
			return err
		}
	}

	for _, err := range merr {
		if err != nil {
			return merr
		}
	}

	return nil
}

func (ch *cacheHandler) DeleteMulti(ctx context.Context, keys []string) error {
	ch.logf(ctx, "cache/aememcache.DeleteMulti: incoming len=%d", len(keys))

	err := memcache.DeleteMulti(ctx, keys)
	if merr, ok := err.(appengine.MultiError); ok {
		for _, err := range merr {
			if err == nil || err == memcache.ErrCacheMiss {
				continue
			}
			ch.logf(ctx, "cache/aememcache: error on memcache.DeleteMulti %s", err.Error())
			return ch.convertError(ctx, merr)
		}
		return nil
	} else if err != nil {
		ch.logf(ctx, "cache/aememcache: error on memcache.DeleteMulti %s", err.Error())
		return err
	}

	return nil
}

// convertError maps memcache errors into the vocabulary of entitymemcache.
func (ch *cacheHandler) convertError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	merr, ok := err.(appengine.MultiError)
	if !ok {
		return convertItemError(err)
	}

	result := make(dscache.MultiError, len(merr))
	for idx, err := range merr {
		result[idx] = convertItemError(err)
	}
	return result
}

func convertItemError(err error) error {
	switch err {
	case memcache.ErrNotStored, memcache.ErrCacheMiss:
		return entitymemcache.ErrNotStored
	case memcache.ErrCASConflict:
		return entitymemcache.ErrCASConflict
	default:
		return err
	}
}

// WithExpireDuration sets the expiration of every item.
func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(o *cacheHandler) {
	o.expireDuration = w.d
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
