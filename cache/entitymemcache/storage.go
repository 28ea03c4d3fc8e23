package entitymemcache

import (
	"context"
	"errors"
)

var (
	// ErrCASConflict means the item was modified since it was read.
	// It is an expected outcome of CompareAndSwapMulti, not a failure.
	ErrCASConflict = errors.New("entitymemcache: compare-and-swap conflict")
	// ErrNotStored means an add found an existing item, or a compare-and-swap
	// found no item at all.
	ErrNotStored = errors.New("entitymemcache: item not stored")
)

// Storage is the cache tier. Implementations must provide an atomic
// compare-and-swap keyed on the Token handed out by GetMulti.
type Storage interface {
	// GetMulti returns the items present in the tier. Missing keys are absent from the result.
	// Every returned item carries a Token identifying its current generation.
	GetMulti(ctx context.Context, keys []string) (map[string]*Item, error)
	// AddMulti stores items only where no item exists yet.
	// Items that already exist report ErrNotStored in a dscache.MultiError.
	AddMulti(ctx context.Context, items []*Item) error
	// CompareAndSwapMulti replaces each item only if its Token is still current.
	// Lost races report ErrCASConflict or ErrNotStored in a dscache.MultiError.
	CompareAndSwapMulti(ctx context.Context, items []*Item) error
	// DeleteMulti unconditionally removes keys. Missing keys are not an error.
	DeleteMulti(ctx context.Context, keys []string) error
}

// Item is one entry of the cache tier.
type Item struct {
	Key   string
	Value []byte
	// Token is opaque to everything but the Storage that produced it.
	Token interface{}
}
