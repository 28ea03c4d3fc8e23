package entitymemcache

import (
	"bytes"
	"encoding/gob"
	"errors"

	"go.mercari.io/dscache"
)

const (
	tagUnknown  byte = 'u'
	tagNegative byte = 'n'
	tagEntity   byte = 'e'
)

var (
	unknownValue  = []byte{tagUnknown}
	negativeValue = []byte{tagNegative}
)

var errBrokenValue = errors.New("entitymemcache: broken cache value")

func encodeEntity(entity *dscache.Entity) ([]byte, error) {
	if entity == nil {
		return negativeValue, nil
	}

	var buf bytes.Buffer
	buf.WriteByte(tagEntity)
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(entity.Properties); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(key dscache.Key, b []byte) (state bucketState, entity *dscache.Entity, err error) {
	if len(b) == 0 {
		return stateUnknown, nil, errBrokenValue
	}

	switch b[0] {
	case tagUnknown:
		return stateUnknown, nil, nil
	case tagNegative:
		return stateNegative, nil, nil
	case tagEntity:
		var ps dscache.PropertyList
		dec := gob.NewDecoder(bytes.NewReader(b[1:]))
		if err := dec.Decode(&ps); err != nil {
			return stateUnknown, nil, err
		}
		return statePresent, &dscache.Entity{Key: key, Properties: ps}, nil
	default:
		return stateUnknown, nil, errBrokenValue
	}
}
