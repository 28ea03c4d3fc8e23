package hybrid

import (
	"context"
	"errors"
	"math"

	"go.mercari.io/dscache"
	"google.golang.org/api/iterator"
)

// Unbounded as a chunk size loads the whole query as a single chunk.
const Unbounded = math.MaxInt

// Result is the handle of one queued load.
// Value is nil when there was nothing to load.
type Result interface {
	Value() interface{}
}

// Loader batches loads. Load only queues; nothing is fetched before Execute.
type Loader interface {
	Load(key dscache.Key) Result
	Execute(ctx context.Context) error
}

// Runner runs queries. *cachestore.Store and any dscache.Store are Runners.
type Runner interface {
	Run(ctx context.Context, q *dscache.Query) dscache.Iterator
}

// Results is a read-only stream of hydrated values.
type Results struct {
	ctx       context.Context
	loader    Loader
	source    dscache.Iterator
	chunkSize int

	cursorAfter dscache.Cursor

	buffer []loaded
	peeked *loaded
	err    error
}

// New wraps source, whose keys are loaded through loader chunkSize at a time.
func New(ctx context.Context, loader Loader, source dscache.Iterator, chunkSize int) (*Results, error) {
	if chunkSize <= 0 {
		return nil, errors.New("hybrid: chunkSize must be positive")
	}

	cursor, err := source.Cursor()
	if err != nil {
		return nil, err
	}

	return &Results{
		ctx:         ctx,
		loader:      loader,
		source:      source,
		chunkSize:   chunkSize,
		cursorAfter: cursor,
	}, nil
}

// Run runs q as a keys-only query on runner and hydrates the keys through loader.
func Run(ctx context.Context, runner Runner, loader Loader, q *dscache.Query, chunkSize int) (*Results, error) {
	it := runner.Run(ctx, q.WithKeysOnly())
	return New(ctx, loader, it, chunkSize)
}

// fill makes r.peeked the next value to return.
// Dropped values are consumed on the way, and so move the cursor.
func (r *Results) fill() error {
	if r.peeked != nil {
		return nil
	}
	if r.err != nil {
		return r.err
	}

	for {
		if len(r.buffer) == 0 {
			chunk, err := nextChunk(r.source, r.chunkSize)
			if err == nil {
				r.buffer, err = loadChunk(r.ctx, r.loader, chunk)
			}
			if err != nil {
				r.err = err
				return err
			}
		}

		l := r.buffer[0]
		r.buffer = r.buffer[1:]
		if l.value == nil {
			r.cursorAfter = l.cursor
			continue
		}
		r.peeked = &l
		return nil
	}
}

// HasNext reports whether Next has a value to return.
func (r *Results) HasNext() (bool, error) {
	err := r.fill()
	if err == iterator.Done {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// Next returns the next value, or iterator.Done when the stream is exhausted.
func (r *Results) Next() (interface{}, error) {
	if err := r.fill(); err != nil {
		return nil, err
	}

	l := r.peeked
	r.peeked = nil
	r.cursorAfter = l.cursor

	return l.value, nil
}

// CursorAfter returns the position behind the last consumed key.
// Before anything was consumed it is the starting cursor of the query.
func (r *Results) CursorAfter() dscache.Cursor {
	return r.cursorAfter
}
