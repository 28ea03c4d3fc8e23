package aedatastore

import (
	"context"

	"go.mercari.io/dscache"
	"google.golang.org/appengine/datastore"
)

var _ dscache.Iterator = (*iteratorImpl)(nil)
var _ dscache.Cursor = (*cursorImpl)(nil)

type iteratorImpl struct {
	keysOnly bool
	t        *datastore.Iterator

	firstError error
}

type cursorImpl struct {
	cursor datastore.Cursor
}

// toOriginalQuery also returns ctx switched to the query's namespace.
func toOriginalQuery(ctx context.Context, q *dscache.Query) (context.Context, *datastore.Query, error) {
	ctx, err := withNamespace(ctx, q.Namespace)
	if err != nil {
		return nil, nil, err
	}

	origQ := datastore.NewQuery(q.Kind)
	if q.Ancestor != nil {
		ancestor, err := toOriginalKey(ctx, q.Ancestor)
		if err != nil {
			return nil, nil, err
		}
		origQ = origQ.Ancestor(ancestor)
	}
	for _, f := range q.Filter {
		origV, err := toOriginalValue(ctx, f.Value)
		if err != nil {
			return nil, nil, err
		}
		origQ = origQ.Filter(f.Filter, origV)
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
			return nil, nil, err
		}
		origQ = origQ.Start(c)
	}
	if q.End != nil {
		c, err := toOriginalCursor(q.End)
		if err != nil {
			return nil, nil, err
		}
		origQ = origQ.End(c)
	}
	if q.EventualConsistency {
		origQ = origQ.EventualConsistency()
	}

	return ctx, origQ, nil
}

func (t *iteratorImpl) Next() (dscache.Key, error) {
	if t.firstError != nil {
		return nil, t.firstError
	}

	var key *datastore.Key
	var err error
	if t.keysOnly {
		key, err = t.t.Next(nil)
	} else {
		// the values are thrown away, only the key is reported
		var origPs datastore.PropertyList
		key, err = t.t.Next(&origPs)
	}
	if err != nil {
		return nil, toWrapperError(err)
	}

	return toWrapperKey(key), nil
}

func (t *iteratorImpl) Cursor() (dscache.Cursor, error) {
	if t.firstError != nil {
		return nil, t.firstError
	}
	cur, err := t.t.Cursor()
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &cursorImpl{cursor: cur}, nil
}

func (cur *cursorImpl) String() string {
	if cur == nil {
		return ""
	}
	return cur.cursor.String()
}
