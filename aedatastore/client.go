package aedatastore

import (
	"context"

	"go.mercari.io/dscache"
	"google.golang.org/appengine"
	"google.golang.org/appengine/datastore"
)

var _ dscache.Store = (*datastoreImpl)(nil)

type datastoreImpl struct{}

func (d *datastoreImpl) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	return getMulti(ctx, keys)
}

func getMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	origKeys, err := toOriginalKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	pss := make([]datastore.PropertyList, len(keys))

	err = datastore.GetMulti(ctx, origKeys, pss)
	return toEntityMap(keys, pss, err)
}

func (d *datastoreImpl) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	origKeys, err := putMulti(ctx, entities)
	if err != nil {
		return nil, err
	}

	return toWrapperKeys(origKeys), nil
}

func putMulti(ctx context.Context, entities []*dscache.Entity) ([]*datastore.Key, error) {
	origKeys := make([]*datastore.Key, 0, len(entities))
	origPss := make([]datastore.PropertyList, 0, len(entities))
	for _, e := range entities {
		origKey, err := toOriginalKey(ctx, e.Key)
		if err != nil {
			return nil, err
		}
		origPs, err := toOriginalPropertyList(ctx, e.Properties)
		if err != nil {
			return nil, err
		}
		origKeys = append(origKeys, origKey)
		origPss = append(origPss, origPs)
	}

	origKeys, err := datastore.PutMulti(ctx, origKeys, origPss)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return origKeys, nil
}

func (d *datastoreImpl) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	return deleteMulti(ctx, keys)
}

func deleteMulti(ctx context.Context, keys []dscache.Key) error {
	origKeys, err := toOriginalKeys(ctx, keys)
	if err != nil {
		return err
	}

	return toWrapperError(datastore.DeleteMulti(ctx, origKeys))
}

func (d *datastoreImpl) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	ext, err := newTxExtractor(ctx)
	if err != nil {
		return nil, err
	}

	return &transactionImpl{ext: ext}, nil
}

func (d *datastoreImpl) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	ctx, origQ, err := toOriginalQuery(ctx, q)
	if err != nil {
		return &iteratorImpl{firstError: err}
	}

	return &iteratorImpl{keysOnly: q.KeysOnly, t: origQ.Run(ctx)}
}

func (d *datastoreImpl) DecodeCursor(s string) (dscache.Cursor, error) {
	cur, err := datastore.DecodeCursor(s)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &cursorImpl{cursor: cur}, nil
}

func withNamespace(ctx context.Context, namespace string) (context.Context, error) {
	if namespaceFromContext(ctx) == namespace {
		return ctx, nil
	}
	return appengine.Namespace(ctx, namespace)
}
