package chaosrpc

import (
	"context"
	"math/rand"
	"sync"

	"go.mercari.io/dscache"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ dscache.Store = &chaosHandler{}
var _ dscache.Transaction = &chaosTx{}

// New returns a Store that fails about one call in five before it reaches next.
// The failures look like a transient RPC error.
func New(next dscache.Store, s rand.Source) dscache.Store {
	return &chaosHandler{
		next: next,
		r:    rand.New(s),
	}
}

type chaosHandler struct {
	next dscache.Store

	m sync.Mutex
	r *rand.Rand
}

func (ch *chaosHandler) raiseError() error {
	ch.m.Lock()
	defer ch.m.Unlock()

	// Make an error with a 20% rate
	if ch.r.Intn(5) == 0 {
		return status.Error(codes.Unavailable, "error from chaosrpc!!")
	}

	return nil
}

func (ch *chaosHandler) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	return ch.next.GetMulti(ctx, keys)
}

func (ch *chaosHandler) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	return ch.next.PutMulti(ctx, entities)
}

func (ch *chaosHandler) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	if err := ch.raiseError(); err != nil {
		return err
	}

	return ch.next.DeleteMulti(ctx, keys)
}

func (ch *chaosHandler) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	tx, err := ch.next.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &chaosTx{ch: ch, next: tx}, nil
}

func (ch *chaosHandler) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	return &chaosIter{ch: ch, next: ch.next.Run(ctx, q)}
}

func (ch *chaosHandler) DecodeCursor(s string) (dscache.Cursor, error) {
	return ch.next.DecodeCursor(s)
}

type chaosTx struct {
	ch   *chaosHandler
	next dscache.Transaction
}

func (tx *chaosTx) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	if err := tx.ch.raiseError(); err != nil {
		return nil, err
	}

	return tx.next.GetMulti(keys)
}

func (tx *chaosTx) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	if err := tx.ch.raiseError(); err != nil {
		return nil, err
	}

	return tx.next.PutMulti(entities)
}

func (tx *chaosTx) DeleteMulti(keys []dscache.Key) error {
	if err := tx.ch.raiseError(); err != nil {
		return err
	}

	return tx.next.DeleteMulti(keys)
}

func (tx *chaosTx) Commit() (dscache.Commit, error) {
	if err := tx.ch.raiseError(); err != nil {
		// the transaction is still open, release it
		tx.next.Rollback()
		return nil, err
	}

	return tx.next.Commit()
}

func (tx *chaosTx) Rollback() error {
	return tx.next.Rollback()
}

type chaosIter struct {
	ch   *chaosHandler
	next dscache.Iterator
}

func (it *chaosIter) Next() (dscache.Key, error) {
	if err := it.ch.raiseError(); err != nil {
		return nil, err
	}

	return it.next.Next()
}

func (it *chaosIter) Cursor() (dscache.Cursor, error) {
	return it.next.Cursor()
}
