package splitop

import (
	"context"
	"sync"

	"go.mercari.io/dscache"
	"golang.org/x/sync/errgroup"
)

var _ dscache.Store = &splitHandler{}

// New returns a Store that splits large batches before handing them to next.
// Split gets run concurrently, split puts and deletes run one after another.
func New(next dscache.Store, opts ...Option) dscache.Store {
	sh := &splitHandler{
		next:              next,
		getSplitThreshold: 1000,
		putSplitThreshold: 500,
	}
	for _, opt := range opts {
		opt.Apply(sh)
	}
	if sh.logf == nil {
		sh.logf = func(ctx context.Context, format string, args ...interface{}) {}
	}

	return sh
}

// A Option is an option for splitop.
type Option interface {
	Apply(*splitHandler)
}

type splitHandler struct {
	next dscache.Store

	getSplitThreshold int
	putSplitThreshold int

	logf func(ctx context.Context, format string, args ...interface{})
}

func ranges(n, threshold int) [][2]int {
	if threshold <= 0 || n <= threshold {
		return [][2]int{{0, n}}
	}
	var rs [][2]int
	for i := 0; i < n; i += threshold {
		end := i + threshold
		if n < end {
			end = n
		}
		rs = append(rs, [2]int{i, end})
	}
	return rs
}

func (sh *splitHandler) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	sh.logf(ctx, "get %d keys", len(keys))
	rs := ranges(len(keys), sh.getSplitThreshold)
	if len(rs) == 1 {
		return sh.next.GetMulti(ctx, keys)
	}

	var m sync.Mutex
	result := make(dscache.EntityMap, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	for _, r := range rs {
		r := r
		sh.logf(ctx, "get [%d, %d) range keys", r[0], r[1])
		eg.Go(func() error {
			entities, err := sh.next.GetMulti(egCtx, keys[r[0]:r[1]])
			if err != nil {
				return err
			}
			m.Lock()
			defer m.Unlock()
			for k, e := range entities {
				result[k] = e
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (sh *splitHandler) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	sh.logf(ctx, "put %d keys", len(entities))
	rs := ranges(len(entities), sh.putSplitThreshold)
	if len(rs) == 1 {
		return sh.next.PutMulti(ctx, entities)
	}

	keys := make([]dscache.Key, 0, len(entities))
	for _, r := range rs {
		sh.logf(ctx, "put [%d, %d) range keys", r[0], r[1])
		newKeys, err := sh.next.PutMulti(ctx, entities[r[0]:r[1]])
		if err != nil {
			return nil, err
		}
		keys = append(keys, newKeys...)
	}

	return keys, nil
}

func (sh *splitHandler) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	sh.logf(ctx, "delete %d keys", len(keys))
	rs := ranges(len(keys), sh.putSplitThreshold)
	if len(rs) == 1 {
		return sh.next.DeleteMulti(ctx, keys)
	}

	for _, r := range rs {
		sh.logf(ctx, "delete [%d, %d) range keys", r[0], r[1])
		if err := sh.next.DeleteMulti(ctx, keys[r[0]:r[1]]); err != nil {
			return err
		}
	}

	return nil
}

func (sh *splitHandler) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	return sh.next.NewTransaction(ctx)
}

func (sh *splitHandler) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	return sh.next.Run(ctx, q)
}

func (sh *splitHandler) DecodeCursor(s string) (dscache.Cursor, error) {
	return sh.next.DecodeCursor(s)
}
