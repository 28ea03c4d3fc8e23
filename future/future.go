package future

import (
	"context"
	"sync"
)

// Future is the handle of an asynchronous result.
// Continuations registered on it run on the goroutine that completes it,
// before the value becomes visible through Get or Done.
type Future[T any] struct {
	m         sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	err       error
	then      []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs f on a new goroutine and returns a Future of its result.
func Go[T any](ctx context.Context, f func(ctx context.Context) (T, error)) *Future[T] {
	fu := newFuture[T]()
	go func() {
		v, err := f(ctx)
		fu.complete(v, err)
	}()
	return fu
}

// Now returns a Future that is already resolved to v.
func Now[T any](v T) *Future[T] {
	fu := newFuture[T]()
	fu.complete(v, nil)
	return fu
}

// Failed returns a Future that is already resolved to err.
func Failed[T any](err error) *Future[T] {
	var zero T
	fu := newFuture[T]()
	fu.complete(zero, err)
	return fu
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. If ctx ends first, ctx.Err() is returned and the
// underlying operation keeps running to completion.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// complete runs the queued continuations and then publishes the result.
// Only the first call has any effect.
func (f *Future[T]) complete(v T, err error) {
	f.m.Lock()
	if f.completed {
		f.m.Unlock()
		return
	}
	f.completed = true
	f.value, f.err = v, err
	then := f.then
	f.then = nil
	f.m.Unlock()

	for _, fn := range then {
		fn(v, err)
	}

	close(f.done)
}

// onComplete queues fn, or runs it right away when f has already completed.
func (f *Future[T]) onComplete(fn func(T, error)) {
	f.m.Lock()
	if f.completed {
		v, err := f.value, f.err
		f.m.Unlock()
		fn(v, err)
		return
	}
	f.then = append(f.then, fn)
	f.m.Unlock()
}
