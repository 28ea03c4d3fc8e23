package dscache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchEntity is returned when no entity was found for a given key.
	ErrNoSuchEntity = errors.New("dscache: no such entity")
	// ErrConcurrentTransaction is returned when a transaction is rolled back due to a conflict with a concurrent transaction.
	ErrConcurrentTransaction = errors.New("dscache: concurrent transaction")
	// ErrInvalidKey is returned when an invalid key is presented.
	ErrInvalidKey = errors.New("dscache: invalid key")
	// ErrInvalidEntityType is returned when an entity does not match the operation.
	ErrInvalidEntityType = errors.New("dscache: invalid entity type")
)

// MultiError is returned by batch operations when there are errors with
// particular elements. Errors will be in a one-to-one correspondence with
// the input elements; successful elements will have a nil entry.
type MultiError []error

func (m MultiError) Error() string {
	s, n := "", 0
	for _, e := range m {
		if e != nil {
			if n == 0 {
				s = e.Error()
			}
			n++
		}
	}
	switch n {
	case 0:
		return "(0 errors)"
	case 1:
		return s
	case 2:
		return s + " (and 1 other error)"
	}
	return fmt.Sprintf("%s (and %d other errors)", s, n-1)
}

// Unwrap returns the non-nil element errors.
func (m MultiError) Unwrap() []error {
	errs := make([]error, 0, len(m))
	for _, e := range m {
		if e != nil {
			errs = append(errs, e)
		}
	}
	return errs
}

// KeysToString formats keys the way the package logs them.
func KeysToString(keys []Key) string {
	keyStrings := make([]string, 0, len(keys))
	for _, key := range keys {
		keyStrings = append(keyStrings, key.String())
	}

	return strings.Join(keyStrings, ", ")
}
