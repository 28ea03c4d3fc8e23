package dscache

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(time.Time{})
	gob.Register(&Entity{})
	gob.Register(GeoPoint{})
	gob.Register([]interface{}{})
	gob.Register(&keyImpl{})
}
