package clouddatastore

import (
	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
)

var _ dscache.Transaction = (*transactionImpl)(nil)
var _ dscache.Commit = (*commitImpl)(nil)

type transactionImpl struct {
	tx *datastore.Transaction
}

type commitImpl struct {
	commit *datastore.Commit
}

func (tx *transactionImpl) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	origKeys := toOriginalKeys(keys)
	pss := make([]datastore.PropertyList, len(keys))

	err := tx.tx.GetMulti(origKeys, pss)
	return toEntityMap(keys, pss, err)
}

func (tx *transactionImpl) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	origKeys := make([]*datastore.Key, 0, len(entities))
	origPss := make([]datastore.PropertyList, 0, len(entities))
	for _, e := range entities {
		origKeys = append(origKeys, toOriginalKey(e.Key))
		origPss = append(origPss, toOriginalPropertyList(e.Properties))
	}

	pKeys, err := tx.tx.PutMulti(origKeys, origPss)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return toWrapperPendingKeys(pKeys), nil
}

func (tx *transactionImpl) DeleteMulti(keys []dscache.Key) error {
	err := tx.tx.DeleteMulti(toOriginalKeys(keys))
	return toWrapperError(err)
}

func (tx *transactionImpl) Commit() (dscache.Commit, error) {
	commit, err := tx.tx.Commit()
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &commitImpl{commit: commit}, nil
}

func (tx *transactionImpl) Rollback() error {
	return toWrapperError(tx.tx.Rollback())
}

func (c *commitImpl) Key(p dscache.PendingKey) dscache.Key {
	pk := toOriginalPendingKey(p)
	if pk == nil {
		return nil
	}
	return toWrapperKey(c.commit.Key(pk))
}
