package aedatastore

import (
	"context"

	"go.mercari.io/dscache"
	"google.golang.org/appengine/datastore"
)

var _ dscache.PendingKey = (*pendingKeyImpl)(nil)

// pendingKeyImpl holds the key App Engine already completed during the put.
type pendingKeyImpl struct {
	key *datastore.Key
}

type contextPendingKey struct{}

func (p *pendingKeyImpl) StoredContext() context.Context {
	return context.WithValue(context.Background(), contextPendingKey{}, p)
}
