package clouddatastore

import (
	"context"

	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
)

var _ dscache.PendingKey = (*pendingKeyImpl)(nil)

type pendingKeyImpl struct {
	pendingKey *datastore.PendingKey
}

type contextPendingKey struct{}

func (p *pendingKeyImpl) StoredContext() context.Context {
	return context.WithValue(context.Background(), contextPendingKey{}, p)
}
