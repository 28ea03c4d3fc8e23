package aedatastore

import (
	"go.mercari.io/dscache"
)

// New returns a Store that uses the App Engine datastore of the calling request.
func New() dscache.Store {
	return &datastoreImpl{}
}

// IsAEDatastore reports whether s was created by New.
func IsAEDatastore(s dscache.Store) bool {
	_, ok := s.(*datastoreImpl)
	return ok
}
