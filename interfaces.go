package dscache

import (
	"context"
)

// Store is the backing entity store the cache sits in front of.
// It is the source of truth; any retry policy belongs to it, not to the cache.
type Store interface {
	// GetMulti returns the entities that exist for keys.
	// Keys that have no entity are simply absent from the result.
	GetMulti(ctx context.Context, keys []Key) (EntityMap, error)
	PutMulti(ctx context.Context, entities []*Entity) ([]Key, error)
	DeleteMulti(ctx context.Context, keys []Key) error

	NewTransaction(ctx context.Context) (Transaction, error)
	Run(ctx context.Context, q *Query) Iterator
	DecodeCursor(s string) (Cursor, error)
}

type Key interface {
	Kind() string
	ID() int64
	Name() string
	ParentKey() Key
	Namespace() string

	String() string
	Encode() string
	Equal(o Key) bool
	Incomplete() bool
}

type PendingKey interface {
	StoredContext() context.Context
}

type Transaction interface {
	GetMulti(keys []Key) (EntityMap, error)
	PutMulti(entities []*Entity) ([]PendingKey, error)
	DeleteMulti(keys []Key) error

	Commit() (Commit, error)
	Rollback() error
}

type Commit interface {
	Key(p PendingKey) Key
}

// Iterator walks the keys produced by a query.
type Iterator interface {
	// Next returns the next key, or iterator.Done when the query is exhausted.
	Next() (Key, error)
	// Cursor returns the position just after the key most recently returned by Next.
	// Before the first call to Next it is the position the query started from.
	Cursor() (Cursor, error)
}

type Cursor interface {
	String() string
}
