package entitymemcache

import (
	"context"

	"go.mercari.io/dscache"
)

// WithIncludeKinds restricts caching to the given kinds.
func WithIncludeKinds(kinds ...string) CacheOption {
	return &withIncludeKinds{kinds}
}

type withIncludeKinds struct{ kinds []string }

func (w *withIncludeKinds) Apply(o *Memcache) {
	o.filters = append(o.filters, func(ctx context.Context, key dscache.Key) bool {
		for _, incKind := range w.kinds {
			if key.Kind() == incKind {
				return true
			}
		}

		return false
	})
}

// WithExcludeKinds never caches the given kinds.
func WithExcludeKinds(kinds ...string) CacheOption {
	return &withExcludeKinds{kinds}
}

type withExcludeKinds struct{ kinds []string }

func (w *withExcludeKinds) Apply(o *Memcache) {
	o.filters = append(o.filters, func(ctx context.Context, key dscache.Key) bool {
		for _, excKind := range w.kinds {
			if key.Kind() == excKind {
				return false
			}
		}

		return true
	})
}

// WithKeyFilter adds an arbitrary filter.
func WithKeyFilter(f KeyFilter) CacheOption {
	return &withKeyFilter{f}
}

type withKeyFilter struct{ f KeyFilter }

func (w *withKeyFilter) Apply(o *Memcache) {
	o.filters = append(o.filters, w.f)
}

// WithLogger creates a CacheOption that uses the specified logger.
func WithLogger(logf func(ctx context.Context, format string, args ...interface{})) CacheOption {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogger) Apply(o *Memcache) {
	o.logf = w.logf
}

// WithCacheKey changes how keys are named in the cache tier.
func WithCacheKey(f func(key dscache.Key) string) CacheOption {
	return &withCacheKey{f}
}

type withCacheKey struct {
	cacheKey func(key dscache.Key) string
}

func (w *withCacheKey) Apply(o *Memcache) {
	o.cacheKey = w.cacheKey
}

// WithStats reports hits and misses to s.
func WithStats(s Stats) CacheOption {
	return &withStats{s}
}

type withStats struct{ s Stats }

func (w *withStats) Apply(o *Memcache) {
	o.stats = w.s
}
