package cachestore

import (
	"context"
	"sync"

	"go.mercari.io/dscache"
)

// Transaction wraps a backing store transaction and evicts what it touched once it commits.
type Transaction struct {
	s           *Store
	tx          dscache.Transaction
	ctx         context.Context
	afterCommit func()

	m           sync.Mutex
	keys        []dscache.Key
	pendingKeys []dscache.PendingKey
}

// NewTransaction begins a transaction on the backing store.
// afterCommit, if not nil, runs after a successful commit has evicted the cache.
func (s *Store) NewTransaction(ctx context.Context, afterCommit func()) (*Transaction, error) {
	tx, err := s.raw.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		s:           s,
		tx:          tx,
		ctx:         ctx,
		afterCommit: afterCommit,
	}, nil
}

// GetMulti reads from the backing transaction. The cache is bypassed.
func (tx *Transaction) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	return tx.tx.GetMulti(keys)
}

func (tx *Transaction) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	pKeys, err := tx.tx.PutMulti(entities)
	if err != nil {
		return nil, err
	}

	tx.m.Lock()
	defer tx.m.Unlock()

	for idx, e := range entities {
		if e.Key.Incomplete() {
			tx.pendingKeys = append(tx.pendingKeys, pKeys[idx])
			continue
		}
		tx.keys = append(tx.keys, e.Key)
	}

	return pKeys, nil
}

func (tx *Transaction) DeleteMulti(keys []dscache.Key) error {
	err := tx.tx.DeleteMulti(keys)
	if err != nil {
		return err
	}

	tx.m.Lock()
	defer tx.m.Unlock()

	tx.keys = append(tx.keys, keys...)

	return nil
}

// Commit commits the backing transaction.
// On success every written or deleted key is evicted and afterCommit runs.
// On failure nothing is evicted.
func (tx *Transaction) Commit() (dscache.Commit, error) {
	commit, err := tx.tx.Commit()
	if err != nil {
		return nil, err
	}

	tx.m.Lock()
	keys := make([]dscache.Key, 0, len(tx.keys)+len(tx.pendingKeys))
	keys = append(keys, tx.keys...)
	for _, pKey := range tx.pendingKeys {
		if key := commit.Key(pKey); key != nil {
			keys = append(keys, key)
		}
	}
	tx.m.Unlock()

	tx.s.logf(tx.ctx, "cachestore.Transaction.Commit: evict len=%d", len(keys))
	tx.s.mc.Empty(tx.ctx, keys)

	if tx.afterCommit != nil {
		tx.afterCommit()
	}

	return commit, nil
}

// Rollback discards the transaction. The cache is not touched.
func (tx *Transaction) Rollback() error {
	return tx.tx.Rollback()
}
