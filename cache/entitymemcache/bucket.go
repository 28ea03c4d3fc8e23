package entitymemcache

import (
	"go.mercari.io/dscache"
)

type bucketState int

const (
	stateUnknown bucketState = iota
	statePresent
	stateNegative
)

// Bucket is the cached state of one key: unknown, present or confirmed absent.
// A Bucket is never nil; lack of knowledge is the unknown state.
type Bucket struct {
	key dscache.Key

	// item is what the tier held when the bucket was read; its Token is the
	// replacement token. nil when the key cannot be cached.
	item *Item

	state  bucketState
	entity *dscache.Entity

	next *dscache.Entity
}

func newBucket(key dscache.Key, item *Item) *Bucket {
	return &Bucket{key: key, item: item}
}

func (b *Bucket) Key() dscache.Key {
	return b.key
}

// IsEmpty reports that nothing is known about the key and a fetch is required.
func (b *Bucket) IsEmpty() bool {
	return b.state == stateUnknown
}

// IsNegative reports that the key is known not to exist.
func (b *Bucket) IsNegative() bool {
	return b.state == stateNegative
}

// IsCacheable reports whether PutAll can write this bucket back.
func (b *Bucket) IsCacheable() bool {
	return b.item != nil
}

// Entity returns the cached entity, nil unless the bucket is present.
func (b *Bucket) Entity() *dscache.Entity {
	return b.entity
}

// SetNext stages the value to write back on the next PutAll.
// A bucket that was never given a next value is written back as negative.
func (b *Bucket) SetNext(entity *dscache.Entity) {
	b.next = entity
}

// KeysOf returns the keys of buckets, in order.
func KeysOf(buckets []*Bucket) []dscache.Key {
	keys := make([]dscache.Key, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.key)
	}
	return keys
}
