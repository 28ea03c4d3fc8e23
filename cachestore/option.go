package cachestore

import (
	"context"
)

// An Option is an option for a Store.
type Option interface {
	Apply(*Store)
}

// WithLogger creates an Option that uses the specified logger.
func WithLogger(logf func(ctx context.Context, format string, args ...interface{})) Option {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogger) Apply(o *Store) {
	o.logf = w.logf
}
