package cachestore

import (
	"context"

	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"go.mercari.io/dscache/future"
)

// Store is the caching reader and writer.
type Store struct {
	raw  dscache.Store
	mc   *entitymemcache.Memcache
	logf func(ctx context.Context, format string, args ...interface{})
}

// New returns a Store that reads through mc and writes to raw.
func New(raw dscache.Store, mc *entitymemcache.Memcache, opts ...Option) *Store {
	s := &Store{
		raw: raw,
		mc:  mc,
	}

	for _, opt := range opts {
		opt.Apply(s)
	}

	if s.logf == nil {
		s.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return s
}

// Get loads keys, serving what it can from the cache.
// Keys without an entity are absent from the result.
// If the backing store fails, the future fails and the cache is left untouched.
func (s *Store) Get(ctx context.Context, keys ...dscache.Key) *future.Future[dscache.EntityMap] {
	buckets := s.mc.GetAll(ctx, keys)

	hits := make(dscache.EntityMap)
	negatives := 0
	misses := make([]*entitymemcache.Bucket, 0, len(buckets))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		encoded := key.Encode()
		if seen[encoded] {
			continue
		}
		seen[encoded] = true

		b := buckets[encoded]
		switch {
		case b.IsEmpty():
			misses = append(misses, b)
		case b.IsNegative():
			negatives++
		default:
			hits[encoded] = b.Entity()
		}
	}

	s.logf(ctx, "cachestore.Get: len=%d hit=%d negative=%d miss=%d", len(seen), len(hits), negatives, len(misses))

	if len(misses) == 0 {
		return future.Now(hits)
	}

	missKeys := entitymemcache.KeysOf(misses)
	pending := future.Go(ctx, func(ctx context.Context) (dscache.EntityMap, error) {
		return s.raw.GetMulti(ctx, missKeys)
	})
	pending = future.TriggerOnSuccess(pending, func(fetched dscache.EntityMap) {
		for _, b := range misses {
			b.SetNext(fetched.Get(b.Key()))
		}
		s.mc.PutAll(ctx, misses)
	})

	if len(hits) == 0 {
		return pending
	}

	return future.Merge(hits, pending)
}

// GetMulti is Get waited on.
func (s *Store) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	return s.Get(ctx, keys...).Get(ctx)
}

// PutMulti writes entities to the backing store and evicts their keys.
// Eviction happens even if the write failed, since it may have been partially applied.
func (s *Store) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	keys, err := s.raw.PutMulti(ctx, entities)

	var evict []dscache.Key
	if err == nil {
		evict = keys
	} else {
		evict = make([]dscache.Key, 0, len(entities))
		for _, e := range entities {
			evict = append(evict, e.Key)
		}
	}
	s.mc.Empty(ctx, evict)

	if err != nil {
		return nil, err
	}

	return keys, nil
}

// DeleteMulti deletes keys from the backing store and evicts them.
func (s *Store) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	err := s.raw.DeleteMulti(ctx, keys)
	s.mc.Empty(ctx, keys)

	return err
}

// Run passes q to the backing store. Queries never touch the cache.
func (s *Store) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	return s.raw.Run(ctx, q)
}

func (s *Store) DecodeCursor(str string) (dscache.Cursor, error) {
	return s.raw.DecodeCursor(str)
}
