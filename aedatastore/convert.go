package aedatastore

import (
	"context"
	"time"

	"go.mercari.io/dscache"
	"google.golang.org/api/iterator"
	"google.golang.org/appengine"
	"google.golang.org/appengine/datastore"
)

func namespaceFromContext(ctx context.Context) string {
	if ctx == nil {
		panic("ctx is nil")
	}
	return datastore.NewIncompleteKey(ctx, "FooBarTest", nil).Namespace()
}

func toOriginalKey(ctx context.Context, key dscache.Key) (*datastore.Key, error) {
	if key == nil {
		return nil, nil
	}

	// appengine.Namespace validates the name with a regexp, skip it when possible.
	if namespaceFromContext(ctx) != key.Namespace() {
		var err error
		ctx, err = appengine.Namespace(ctx, key.Namespace())
		if err != nil {
			return nil, err
		}
	}

	origPK, err := toOriginalKey(ctx, key.ParentKey())
	if err != nil {
		return nil, err
	}
	return datastore.NewKey(ctx, key.Kind(), key.Name(), key.ID(), origPK), nil
}

func toOriginalKeys(ctx context.Context, keys []dscache.Key) ([]*datastore.Key, error) {
	if keys == nil {
		return nil, nil
	}

	origKeys := make([]*datastore.Key, len(keys))
	for idx, key := range keys {
		origKey, err := toOriginalKey(ctx, key)
		if err != nil {
			return nil, err
		}
		origKeys[idx] = origKey
	}

	return origKeys, nil
}

func toWrapperKey(key *datastore.Key) dscache.Key {
	if key == nil {
		return nil
	}

	parent := toWrapperKey(key.Parent())
	var k dscache.Key
	switch {
	case key.StringID() != "":
		k = dscache.NameKey(key.Kind(), key.StringID(), parent)
	case key.IntID() != 0:
		k = dscache.IDKey(key.Kind(), key.IntID(), parent)
	default:
		k = dscache.IncompleteKey(key.Kind(), parent)
	}
	if key.Namespace() != k.Namespace() {
		k = dscache.WithNamespace(k, key.Namespace())
	}

	return k
}

func toWrapperKeys(keys []*datastore.Key) []dscache.Key {
	if keys == nil {
		return nil
	}

	wKeys := make([]dscache.Key, len(keys))
	for idx, key := range keys {
		wKeys[idx] = toWrapperKey(key)
	}

	return wKeys
}

func toOriginalPendingKey(pKey dscache.PendingKey) *datastore.Key {
	if pKey == nil {
		return nil
	}
	pk, ok := pKey.StoredContext().Value(contextPendingKey{}).(*pendingKeyImpl)
	if !ok {
		return nil
	}

	if pk == nil || pk.key == nil {
		return nil
	}

	return pk.key
}

func toWrapperPendingKeys(keys []*datastore.Key) []dscache.PendingKey {
	if keys == nil {
		return nil
	}

	wKeys := make([]dscache.PendingKey, len(keys))
	for idx, key := range keys {
		wKeys[idx] = &pendingKeyImpl{key: key}
	}

	return wKeys
}

func toWrapperError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case err == datastore.ErrNoSuchEntity:
		return dscache.ErrNoSuchEntity

	case err == datastore.Done:
		// align to Cloud Datastore API.
		return iterator.Done

	case err == datastore.ErrConcurrentTransaction:
		return dscache.ErrConcurrentTransaction

	case err == datastore.ErrInvalidEntityType:
		return dscache.ErrInvalidEntityType

	case err == datastore.ErrInvalidKey:
		return dscache.ErrInvalidKey

	default:
		if merr, ok := err.(appengine.MultiError); ok {
			newErr := make(dscache.MultiError, 0, len(merr))
			for _, err := range merr {
				newErr = append(newErr, toWrapperError(err))
			}
			return newErr
		}

		return err
	}
}

// toEntityMap collects the loaded property lists.
// Elements that failed with ErrNoSuchEntity are left out of the result,
// any other element error fails the whole call.
func toEntityMap(keys []dscache.Key, pss []datastore.PropertyList, err error) (dscache.EntityMap, error) {
	var merr appengine.MultiError
	if err != nil {
		var ok bool
		merr, ok = err.(appengine.MultiError)
		if !ok {
			return nil, toWrapperError(err)
		}
		for _, err := range merr {
			if err != nil && err != datastore.ErrNoSuchEntity {
				return nil, toWrapperError(merr)
			}
		}
	}

	m := make(dscache.EntityMap, len(keys))
	for idx, key := range keys {
		if merr != nil && merr[idx] != nil {
			continue
		}
		m.Put(&dscache.Entity{
			Key:        key,
			Properties: toWrapperPropertyList(pss[idx]),
		})
	}

	return m, nil
}

func toOriginalValue(ctx context.Context, v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case *dscache.Entity:
		// App Engine has no embedded entity values.
		return nil, dscache.ErrInvalidEntityType

	case dscache.Key:
		return toOriginalKey(ctx, v)

	case dscache.GeoPoint:
		return appengine.GeoPoint{Lat: v.Lat, Lng: v.Lng}, nil

	default:
		return v, nil
	}
}

func toWrapperValue(v interface{}) interface{} {
	switch v := v.(type) {
	case *datastore.Key:
		if v == nil {
			return nil
		}
		return toWrapperKey(v)

	case time.Time:
		// align to cloud datastore.
		// cloud datastore uses machine locale.
		return v.In(time.Local)

	case appengine.GeoPoint:
		return dscache.GeoPoint{Lat: v.Lat, Lng: v.Lng}

	default:
		return v
	}
}

// toOriginalPropertyList expands []interface{} values into Multiple properties.
func toOriginalPropertyList(ctx context.Context, ps dscache.PropertyList) (datastore.PropertyList, error) {
	if ps == nil {
		return nil, nil
	}

	newPs := make(datastore.PropertyList, 0, len(ps))
	for _, p := range ps {
		if vs, ok := p.Value.([]interface{}); ok {
			for _, v := range vs {
				origV, err := toOriginalValue(ctx, v)
				if err != nil {
					return nil, err
				}
				newPs = append(newPs, datastore.Property{
					Name:     p.Name,
					Value:    origV,
					NoIndex:  p.NoIndex,
					Multiple: true,
				})
			}
			continue
		}

		origV, err := toOriginalValue(ctx, p.Value)
		if err != nil {
			return nil, err
		}
		newPs = append(newPs, datastore.Property{
			Name:    p.Name,
			Value:   origV,
			NoIndex: p.NoIndex,
		})
	}

	return newPs, nil
}

// toWrapperPropertyList gathers Multiple properties of the same name into one []interface{} value.
func toWrapperPropertyList(ps datastore.PropertyList) dscache.PropertyList {
	if ps == nil {
		return nil
	}

	multiIdx := make(map[string]int)
	newPs := make(dscache.PropertyList, 0, len(ps))
	for _, p := range ps {
		if !p.Multiple {
			newPs = append(newPs, dscache.Property{
				Name:    p.Name,
				Value:   toWrapperValue(p.Value),
				NoIndex: p.NoIndex,
			})
			continue
		}

		if idx, ok := multiIdx[p.Name]; ok {
			newPs[idx].Value = append(newPs[idx].Value.([]interface{}), toWrapperValue(p.Value))
			continue
		}
		multiIdx[p.Name] = len(newPs)
		newPs = append(newPs, dscache.Property{
			Name:    p.Name,
			Value:   []interface{}{toWrapperValue(p.Value)},
			NoIndex: p.NoIndex,
		})
	}

	return newPs
}

func toOriginalCursor(c dscache.Cursor) (datastore.Cursor, error) {
	if c, ok := c.(*cursorImpl); ok {
		return c.cursor, nil
	}
	return datastore.DecodeCursor(c.String())
}
