package entitymemcache

import (
	"context"

	"go.mercari.io/dscache"
)

// Memcache is a map of Buckets backed by a cache tier.
// It never talks to the backing store and never returns an error: when the
// tier misbehaves, the failure is logged and the affected keys are treated
// as uncacheable.
type Memcache struct {
	s        Storage
	logf     func(ctx context.Context, format string, args ...interface{})
	filters  []KeyFilter
	cacheKey func(key dscache.Key) string
	stats    Stats
}

// KeyFilter decides whether key may be cached. Keys rejected by any filter are never cached.
type KeyFilter func(ctx context.Context, key dscache.Key) bool

// A CacheOption is an option for a Memcache.
type CacheOption interface {
	Apply(*Memcache)
}

// New returns a Memcache on top of s.
func New(s Storage, opts ...CacheOption) *Memcache {
	mc := &Memcache{
		s: s,
	}

	for _, opt := range opts {
		opt.Apply(mc)
	}

	if mc.logf == nil {
		mc.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}
	if mc.cacheKey == nil {
		mc.cacheKey = func(key dscache.Key) string {
			return "mercari:dscache:" + key.Encode()
		}
	}
	if mc.stats == nil {
		mc.stats = nopStats{}
	}

	return mc
}

func (mc *Memcache) target(ctx context.Context, key dscache.Key) bool {
	if key.Incomplete() {
		return false
	}
	for _, f := range mc.filters {
		// If false comes back even once, it is not cached
		if !f(ctx, key) {
			return false
		}
	}

	return true
}

// GetAll returns a Bucket for every key, keyed by Key.Encode().
// Keys that have nothing in the tier yet get an unknown placeholder added,
// so that the bucket carries a replacement token for the later PutAll.
func (mc *Memcache) GetAll(ctx context.Context, keys []dscache.Key) map[string]*Bucket {
	result := make(map[string]*Bucket, len(keys))

	cacheKeys := make([]string, 0, len(keys))
	targets := make([]dscache.Key, 0, len(keys))
	for _, key := range keys {
		encoded := key.Encode()
		if _, ok := result[encoded]; ok {
			continue
		}
		result[encoded] = newBucket(key, nil)
		if !mc.target(ctx, key) {
			continue
		}
		cacheKeys = append(cacheKeys, mc.cacheKey(key))
		targets = append(targets, key)
	}
	if len(cacheKeys) == 0 {
		return result
	}

	mc.logf(ctx, "cache/entitymemcache.GetAll: incoming len=%d", len(cacheKeys))

	items, err := mc.s.GetMulti(ctx, cacheKeys)
	if err != nil {
		mc.logf(ctx, "cache/entitymemcache.GetAll: error on storage.GetMulti err=%s", err.Error())
		return result
	}

	missing := make([]*Item, 0, len(cacheKeys))
	for _, cacheKey := range cacheKeys {
		if _, ok := items[cacheKey]; !ok {
			missing = append(missing, &Item{Key: cacheKey, Value: unknownValue})
		}
	}
	if len(missing) != 0 {
		// someone else may add the same keys concurrently; any placeholder will do.
		err = mc.s.AddMulti(ctx, missing)
		if err != nil && !isLostRace(err) {
			mc.logf(ctx, "cache/entitymemcache.GetAll: error on storage.AddMulti err=%s", err.Error())
		}

		missingKeys := make([]string, 0, len(missing))
		for _, item := range missing {
			missingKeys = append(missingKeys, item.Key)
		}
		added, err := mc.s.GetMulti(ctx, missingKeys)
		if err != nil {
			mc.logf(ctx, "cache/entitymemcache.GetAll: error on storage.GetMulti err=%s", err.Error())
		}
		for cacheKey, item := range added {
			items[cacheKey] = item
		}
	}

	hit, miss := 0, 0
	for idx, key := range targets {
		b := result[key.Encode()]
		item, ok := items[cacheKeys[idx]]
		if !ok {
			miss++
			mc.stats.Miss(key)
			continue
		}
		b.item = item

		state, entity, err := decodeValue(key, item.Value)
		if err != nil {
			// stays unknown; the next PutAll overwrites the broken value.
			mc.logf(ctx, "cache/entitymemcache.GetAll: decode error key=%s err=%s", key.String(), err.Error())
		}
		b.state = state
		b.entity = entity

		if b.IsEmpty() {
			miss++
			mc.stats.Miss(key)
		} else {
			hit++
			mc.stats.Hit(key)
		}
	}

	mc.logf(ctx, "cache/entitymemcache.GetAll: hit=%d miss=%d", hit, miss)

	return result
}

// PutAll writes the staged value of every cacheable bucket back to the tier,
// each one conditional on the bucket's replacement token.
// Buckets whose token is stale are skipped silently; a newer value won.
func (mc *Memcache) PutAll(ctx context.Context, buckets []*Bucket) {
	items := make([]*Item, 0, len(buckets))
	for _, b := range buckets {
		if !b.IsCacheable() {
			continue
		}
		value, err := encodeEntity(b.next)
		if err != nil {
			mc.logf(ctx, "cache/entitymemcache.PutAll: gob.Encode error key=%s err=%s", b.key.String(), err.Error())
			continue
		}
		items = append(items, &Item{
			Key:   b.item.Key,
			Value: value,
			Token: b.item.Token,
		})
	}
	if len(items) == 0 {
		return
	}

	mc.logf(ctx, "cache/entitymemcache.PutAll: incoming len=%d", len(items))

	err := mc.s.CompareAndSwapMulti(ctx, items)
	if err == nil {
		mc.logf(ctx, "cache/entitymemcache.PutAll: stored=%d stale=%d", len(items), 0)
		return
	}

	if !isLostRace(err) {
		mc.logf(ctx, "cache/entitymemcache.PutAll: error on storage.CompareAndSwapMulti err=%s", err.Error())
		return
	}

	stale := len(items)
	if merr, ok := err.(dscache.MultiError); ok {
		stale = 0
		for _, err := range merr {
			if err != nil {
				stale++
			}
		}
	}
	mc.logf(ctx, "cache/entitymemcache.PutAll: stored=%d stale=%d", len(items)-stale, stale)
}

// Empty evicts keys unconditionally. Any write-back still carrying a token
// read before the eviction will lose.
func (mc *Memcache) Empty(ctx context.Context, keys []dscache.Key) {
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == nil || !mc.target(ctx, key) {
			continue
		}
		cacheKeys = append(cacheKeys, mc.cacheKey(key))
	}
	if len(cacheKeys) == 0 {
		return
	}

	mc.logf(ctx, "cache/entitymemcache.Empty: len=%d", len(cacheKeys))

	err := mc.s.DeleteMulti(ctx, cacheKeys)
	if err != nil {
		mc.logf(ctx, "cache/entitymemcache.Empty: error on storage.DeleteMulti err=%s", err.Error())
	}
}

// isLostRace reports whether err only says that another writer got there first.
func isLostRace(err error) bool {
	switch err {
	case nil, ErrCASConflict, ErrNotStored:
		return true
	}
	merr, ok := err.(dscache.MultiError)
	if !ok {
		return false
	}
	for _, err := range merr {
		switch err {
		case nil, ErrCASConflict, ErrNotStored:
		default:
			return false
		}
	}
	return true
}
