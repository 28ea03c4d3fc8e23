package dslog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mercari.io/dscache/cache/entitymemcache"
)

var _ entitymemcache.Storage = &logger{}

// NewLogger returns a cache tier that logs every call made to next.
func NewLogger(prefix string, logf func(ctx context.Context, format string, args ...interface{}), next entitymemcache.Storage) entitymemcache.Storage {
	return &logger{Prefix: prefix, Logf: logf, next: next, counter: 1}
}

type logger struct {
	Prefix string
	Logf   func(ctx context.Context, format string, args ...interface{})

	next entitymemcache.Storage

	m       sync.Mutex
	counter int
}

func (l *logger) count() int {
	l.m.Lock()
	defer l.m.Unlock()
	cnt := l.counter
	l.counter += 1
	return cnt
}

func itemKeys(items []*entitymemcache.Item) string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return strings.Join(keys, ", ")
}

func (l *logger) GetMulti(ctx context.Context, keys []string) (map[string]*entitymemcache.Item, error) {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"GetMulti #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), strings.Join(keys, ", "))

	items, err := l.next.GetMulti(ctx, keys)

	if err == nil {
		found := make([]string, 0, len(items))
		for key := range items {
			found = append(found, key)
		}
		sort.Strings(found)
		l.Logf(ctx, l.Prefix+"GetMulti #%d, len(items)=%d, keys=[%s]", cnt, len(items), strings.Join(found, ", "))
	} else {
		l.Logf(ctx, l.Prefix+"GetMulti #%d, err=%s", cnt, err.Error())
	}

	return items, err
}

func (l *logger) AddMulti(ctx context.Context, items []*entitymemcache.Item) error {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"AddMulti #%d, len(items)=%d, keys=[%s]", cnt, len(items), itemKeys(items))

	err := l.next.AddMulti(ctx, items)

	if err != nil {
		l.Logf(ctx, l.Prefix+"AddMulti #%d, err=%s", cnt, err.Error())
	}

	return err
}

func (l *logger) CompareAndSwapMulti(ctx context.Context, items []*entitymemcache.Item) error {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"CompareAndSwapMulti #%d, len(items)=%d, keys=[%s]", cnt, len(items), itemKeys(items))

	err := l.next.CompareAndSwapMulti(ctx, items)

	if err != nil {
		l.Logf(ctx, l.Prefix+"CompareAndSwapMulti #%d, err=%s", cnt, err.Error())
	}

	return err
}

func (l *logger) DeleteMulti(ctx context.Context, keys []string) error {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"DeleteMulti #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), strings.Join(keys, ", "))

	err := l.next.DeleteMulti(ctx, keys)

	if err != nil {
		l.Logf(ctx, l.Prefix+"DeleteMulti #%d, err=%s", cnt, err.Error())
	}

	return err
}
