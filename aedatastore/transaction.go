package aedatastore

import (
	"context"
	"errors"

	"go.mercari.io/dscache"
	"google.golang.org/appengine/datastore"
)

var _ dscache.Transaction = (*transactionImpl)(nil)
var _ dscache.Commit = (*commitImpl)(nil)

// txExtractor keeps a RunInTransaction callback open on its own goroutine
// so that the transaction can be driven step by step.
type txExtractor struct {
	txCtx   context.Context
	finishC chan txResult
	resultC chan error
}

type txResult struct {
	commit   bool
	rollback bool
}

var errRollback = errors.New("rollback requested")

func newTxExtractor(ctx context.Context) (*txExtractor, error) {
	ctxC := make(chan context.Context)

	ext := &txExtractor{
		finishC: make(chan txResult),
		resultC: make(chan error),
	}

	go func() {
		// Attempts: 1, a retry has to be decided by the caller.
		err := datastore.RunInTransaction(ctx, func(ctx context.Context) error {
			ctxC <- ctx

			result, ok := <-ext.finishC
			if !ok {
				return errors.New("channel closed")
			}

			if result.commit {
				return nil
			} else if result.rollback {
				return errRollback
			}

			panic("unexpected tx state")

		}, &datastore.TransactionOptions{XG: true, Attempts: 1})
		if err == errRollback {
			err = nil
		}
		ext.resultC <- toWrapperError(err)
	}()

	select {
	case txCtx := <-ctxC:
		ext.txCtx = txCtx
	case err := <-ext.resultC:
		if err == nil {
			panic("unexpected state")
		}
		return nil, err
	}

	return ext, nil
}

func (ext *txExtractor) commit() error {
	ext.finishC <- txResult{commit: true}
	return <-ext.resultC
}

func (ext *txExtractor) rollback() error {
	ext.finishC <- txResult{rollback: true}
	return <-ext.resultC
}

type transactionImpl struct {
	ext      *txExtractor
	finished bool
}

type commitImpl struct{}

func (tx *transactionImpl) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	return getMulti(tx.ext.txCtx, keys)
}

func (tx *transactionImpl) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	origKeys, err := putMulti(tx.ext.txCtx, entities)
	if err != nil {
		return nil, err
	}

	return toWrapperPendingKeys(origKeys), nil
}

func (tx *transactionImpl) DeleteMulti(keys []dscache.Key) error {
	return deleteMulti(tx.ext.txCtx, keys)
}

func (tx *transactionImpl) Commit() (dscache.Commit, error) {
	if tx.finished {
		return nil, errors.New("aedatastore: transaction already finished")
	}
	tx.finished = true

	if err := tx.ext.commit(); err != nil {
		return nil, err
	}

	return &commitImpl{}, nil
}

func (tx *transactionImpl) Rollback() error {
	if tx.finished {
		return errors.New("aedatastore: transaction already finished")
	}
	tx.finished = true

	return tx.ext.rollback()
}

// Key returns the key App Engine assigned during the put.
func (c *commitImpl) Key(p dscache.PendingKey) dscache.Key {
	return toWrapperKey(toOriginalPendingKey(p))
}
