package hybrid

import (
	"context"

	"go.mercari.io/dscache"
	"google.golang.org/api/iterator"
)

// withCursor is one key of the query and the position right behind it.
type withCursor struct {
	key    dscache.Key
	cursor dscache.Cursor
}

// loaded is one hydrated value and the position right behind its key.
// value is nil when the entity no longer exists.
type loaded struct {
	value  interface{}
	cursor dscache.Cursor
}

// nextWithCursor pulls the next key from source together with its cursor.
func nextWithCursor(source dscache.Iterator) (withCursor, error) {
	key, err := source.Next()
	if err != nil {
		return withCursor{}, err
	}
	cursor, err := source.Cursor()
	if err != nil {
		return withCursor{}, err
	}

	return withCursor{key: key, cursor: cursor}, nil
}

// nextChunk pulls up to size keys. It returns iterator.Done when source is exhausted.
func nextChunk(source dscache.Iterator, size int) ([]withCursor, error) {
	var chunk []withCursor
	if size != Unbounded {
		chunk = make([]withCursor, 0, size)
	}

	for len(chunk) < size {
		wc, err := nextWithCursor(source)
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		}
		chunk = append(chunk, wc)
	}

	if len(chunk) == 0 {
		return nil, iterator.Done
	}

	return chunk, nil
}

// loadChunk loads every key of chunk in one batch and keeps the order.
func loadChunk(ctx context.Context, loader Loader, chunk []withCursor) ([]loaded, error) {
	results := make([]Result, 0, len(chunk))
	for _, wc := range chunk {
		results = append(results, loader.Load(wc.key))
	}

	if err := loader.Execute(ctx); err != nil {
		return nil, err
	}

	list := make([]loaded, 0, len(chunk))
	for idx, r := range results {
		list = append(list, loaded{value: r.Value(), cursor: chunk[idx].cursor})
	}

	return list, nil
}
