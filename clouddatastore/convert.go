package clouddatastore

import (
	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
)

func toOriginalKey(key dscache.Key) *datastore.Key {
	if key == nil {
		return nil
	}

	return &datastore.Key{
		Kind:      key.Kind(),
		ID:        key.ID(),
		Name:      key.Name(),
		Parent:    toOriginalKey(key.ParentKey()),
		Namespace: key.Namespace(),
	}
}

func toOriginalKeys(keys []dscache.Key) []*datastore.Key {
	if keys == nil {
		return nil
	}

	origKeys := make([]*datastore.Key, len(keys))
	for idx, key := range keys {
		origKeys[idx] = toOriginalKey(key)
	}

	return origKeys
}

func toWrapperKey(key *datastore.Key) dscache.Key {
	if key == nil {
		return nil
	}

	parent := toWrapperKey(key.Parent)
	var k dscache.Key
	switch {
	case key.Name != "":
		k = dscache.NameKey(key.Kind, key.Name, parent)
	case key.ID != 0:
		k = dscache.IDKey(key.Kind, key.ID, parent)
	default:
		k = dscache.IncompleteKey(key.Kind, parent)
	}
	if key.Namespace != k.Namespace() {
		k = dscache.WithNamespace(k, key.Namespace)
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

func toOriginalPendingKey(pKey dscache.PendingKey) *datastore.PendingKey {
	if pKey == nil {
		return nil
	}
	pk, ok := pKey.StoredContext().Value(contextPendingKey{}).(*pendingKeyImpl)
	if !ok {
		return nil
	}

	if pk == nil || pk.pendingKey == nil {
		return nil
	}

	return pk.pendingKey
}

func toWrapperPendingKeys(keys []*datastore.PendingKey) []dscache.PendingKey {
	if keys == nil {
		return nil
	}

	wKeys := make([]dscache.PendingKey, len(keys))
	for idx, key := range keys {
		wKeys[idx] = &pendingKeyImpl{pendingKey: key}
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

	case err == datastore.ErrConcurrentTransaction:
		return dscache.ErrConcurrentTransaction

	case err == datastore.ErrInvalidEntityType:
		return dscache.ErrInvalidEntityType

	case err == datastore.ErrInvalidKey:
		return dscache.ErrInvalidKey

	default:
		if merr, ok := err.(datastore.MultiError); ok {
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
	var merr datastore.MultiError
	if err != nil {
		var ok bool
		merr, ok = err.(datastore.MultiError)
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

func toOriginalEntity(entity *dscache.Entity) *datastore.Entity {
	if entity == nil {
		return nil
	}

	return &datastore.Entity{
		Key:        toOriginalKey(entity.Key),
		Properties: toOriginalPropertyList(entity.Properties),
	}
}

func toWrapperEntity(entity *datastore.Entity) *dscache.Entity {
	if entity == nil {
		return nil
	}

	return &dscache.Entity{
		Key:        toWrapperKey(entity.Key),
		Properties: toWrapperPropertyList(entity.Properties),
	}
}

func toOriginalValue(v interface{}) interface{} {
	switch v := v.(type) {
	case []interface{}:
		origVs := make([]interface{}, 0, len(v))
		for _, v := range v {
			origVs = append(origVs, toOriginalValue(v))
		}
		return origVs

	case *dscache.Entity:
		return toOriginalEntity(v)

	case dscache.Key:
		return toOriginalKey(v)

	case dscache.GeoPoint:
		return datastore.GeoPoint{Lat: v.Lat, Lng: v.Lng}

	default:
		return v
	}
}

func toWrapperValue(v interface{}) interface{} {
	switch v := v.(type) {
	case []interface{}:
		wVs := make([]interface{}, 0, len(v))
		for _, v := range v {
			wVs = append(wVs, toWrapperValue(v))
		}
		return wVs

	case *datastore.Entity:
		if v == nil {
			return nil
		}
		return toWrapperEntity(v)

	case *datastore.Key:
		if v == nil {
			return nil
		}
		return toWrapperKey(v)

	case datastore.GeoPoint:
		return dscache.GeoPoint{Lat: v.Lat, Lng: v.Lng}

	default:
		return v
	}
}

func toOriginalPropertyList(ps dscache.PropertyList) datastore.PropertyList {
	if ps == nil {
		return nil
	}

	origPs := make(datastore.PropertyList, 0, len(ps))
	for _, p := range ps {
		origPs = append(origPs, datastore.Property{
			Name:    p.Name,
			Value:   toOriginalValue(p.Value),
			NoIndex: p.NoIndex,
		})
	}

	return origPs
}

func toWrapperPropertyList(ps datastore.PropertyList) dscache.PropertyList {
	if ps == nil {
		return nil
	}

	wPs := make(dscache.PropertyList, 0, len(ps))
	for _, p := range ps {
		wPs = append(wPs, dscache.Property{
			Name:    p.Name,
			Value:   toWrapperValue(p.Value),
			NoIndex: p.NoIndex,
		})
	}

	return wPs
}

func toOriginalCursor(c dscache.Cursor) (datastore.Cursor, error) {
	if c, ok := c.(cursorImpl); ok {
		return c.cursor, nil
	}
	return datastore.DecodeCursor(c.String())
}
