package dscache

// Property is a name/value pair plus some metadata.
// Value may be one of the store's scalar types, a Key, a GeoPoint, an *Entity
// or a []interface{} of those.
type Property struct {
	Name    string
	Value   interface{}
	NoIndex bool
}

type GeoPoint struct {
	Lat, Lng float64
}

// Entity is the record the backing store produces for one key.
// It must be treated as immutable once read.
type Entity struct {
	Key        Key
	Properties PropertyList
}

type PropertyList []Property

// Get returns the value of the first property named name.
func (l PropertyList) Get(name string) (interface{}, bool) {
	for _, p := range l {
		if p.Name == name {
			return p.Value, true
		}
	}

	return nil, false
}

// EntityMap holds entities keyed by Key.Encode().
type EntityMap map[string]*Entity

func (m EntityMap) Get(key Key) *Entity {
	if m == nil || key == nil {
		return nil
	}
	return m[key.Encode()]
}

func (m EntityMap) Put(entity *Entity) {
	m[entity.Key.Encode()] = entity
}

// Keys returns the keys of all entities in m, in no particular order.
func (m EntityMap) Keys() []Key {
	keys := make([]Key, 0, len(m))
	for _, e := range m {
		keys = append(keys, e.Key)
	}
	return keys
}
