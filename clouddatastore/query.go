package clouddatastore

import (
	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
)

var _ dscache.Iterator = (*iteratorImpl)(nil)
var _ dscache.Cursor = cursorImpl{}

type iteratorImpl struct {
	t          *datastore.Iterator
	firstError error
}

type cursorImpl struct {
	cursor datastore.Cursor
}

func toOriginalQuery(q *dscache.Query) (*datastore.Query, error) {
	origQ := datastore.NewQuery(q.Kind)
	if q.Namespace != "" {
		origQ = origQ.Namespace(q.Namespace)
	}
	if q.Ancestor != nil {
		origQ = origQ.Ancestor(toOriginalKey(q.Ancestor))
	}
	for _, f := range q.Filter {
		origQ = origQ.Filter(f.Filter, toOriginalValue(f.Value))
	}
	for _, o := range q.Order {
		origQ = origQ.Order(o)
	}
	if q.KeysOnly {
		origQ = origQ.KeysOnly()
	}
	if q.Limit != 0 {
		origQ = origQ.Limit(q.Limit)
	}
	if q.Offset != 0 {
		origQ = origQ.Offset(q.Offset)
	}
	if q.Start != nil {
		c, err := toOriginalCursor(q.Start)
		if err != nil {
			return nil, err
		}
		origQ = origQ.Start(c)
	}
	if q.End != nil {
		c, err := toOriginalCursor(q.End)
		if err != nil {
			return nil, err
		}
		origQ = origQ.End(c)
	}
	if q.EventualConsistency {
		origQ = origQ.EventualConsistency()
	}

	return origQ, nil
}

func (t *iteratorImpl) Next() (dscache.Key, error) {
	if t.firstError != nil {
		return nil, t.firstError
	}

	key, err := t.t.Next(nil)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return toWrapperKey(key), nil
}

func (t *iteratorImpl) Cursor() (dscache.Cursor, error) {
	if t.firstError != nil {
		return nil, t.firstError
	}

	cursor, err := t.t.Cursor()
	if err != nil {
		return nil, toWrapperError(err)
	}

	return cursorImpl{cursor: cursor}, nil
}

func (c cursorImpl) String() string {
	return c.cursor.String()
}
