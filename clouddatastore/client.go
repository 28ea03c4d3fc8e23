package clouddatastore

import (
	"context"

	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
)

var _ dscache.Store = (*Store)(nil)

// Store is a dscache.Store backed by Cloud Datastore.
type Store struct {
	client *datastore.Client
}

// Client returns the underlying client.
func (d *Store) Client() *datastore.Client {
	return d.client
}

func (d *Store) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	origKeys := toOriginalKeys(keys)
	pss := make([]datastore.PropertyList, len(keys))

	err := d.client.GetMulti(ctx, origKeys, pss)
	return toEntityMap(keys, pss, err)
}

func (d *Store) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	origKeys := make([]*datastore.Key, 0, len(entities))
	origPss := make([]datastore.PropertyList, 0, len(entities))
	for _, e := range entities {
		origKeys = append(origKeys, toOriginalKey(e.Key))
		origPss = append(origPss, toOriginalPropertyList(e.Properties))
	}

	origKeys, err := d.client.PutMulti(ctx, origKeys, origPss)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return toWrapperKeys(origKeys), nil
}

func (d *Store) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	err := d.client.DeleteMulti(ctx, toOriginalKeys(keys))
	return toWrapperError(err)
}

func (d *Store) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	tx, err := d.client.NewTransaction(ctx)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &transactionImpl{tx: tx}, nil
}

func (d *Store) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	origQ, err := toOriginalQuery(q)
	if err != nil {
		return &iteratorImpl{firstError: err}
	}

	return &iteratorImpl{t: d.client.Run(ctx, origQ)}
}

func (d *Store) DecodeCursor(s string) (dscache.Cursor, error) {
	cursor, err := datastore.DecodeCursor(s)
	if err != nil {
		return nil, err
	}

	return cursorImpl{cursor: cursor}, nil
}

func (d *Store) Close() error {
	return d.client.Close()
}
