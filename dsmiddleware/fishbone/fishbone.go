package fishbone

import (
	"context"

	"go.mercari.io/dscache"
)

var _ dscache.Store = &modifier{}

// New fishbone store creates and returns.
func New(next dscache.Store) dscache.Store {
	return &modifier{next: next}
}

type modifier struct {
	next dscache.Store
}

func (m *modifier) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	return m.next.GetMulti(ctx, keys)
}

func (m *modifier) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	return m.next.PutMulti(ctx, entities)
}

func (m *modifier) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	return m.next.DeleteMulti(ctx, keys)
}

func (m *modifier) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	return m.next.NewTransaction(ctx)
}

func (m *modifier) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	if q.KeysOnly {
		return m.next.Run(ctx, q)
	}
	return m.next.Run(ctx, q.WithKeysOnly())
}

func (m *modifier) DecodeCursor(s string) (dscache.Cursor, error) {
	return m.next.DecodeCursor(s)
}
