package future

// TriggerOnSuccess returns a Future that resolves like pending, except that
// onSuccess(value) runs exactly once, to completion, before a successful value
// is visible to anyone waiting on the returned Future.
// When pending fails, onSuccess is not called and the error is passed through unchanged.
func TriggerOnSuccess[T any](pending *Future[T], onSuccess func(T)) *Future[T] {
	fu := newFuture[T]()
	pending.onComplete(func(v T, err error) {
		if err == nil {
			onSuccess(v)
		}
		fu.complete(v, err)
	})
	return fu
}

// Merge combines values that are already known with a pending batch.
// A nil pending resolves immediately to known. Otherwise the result is the
// union of both, entries of pending winning on collision, and a failure of
// pending fails the whole merge.
func Merge[M ~map[K]V, K comparable, V any](known M, pending *Future[M]) *Future[M] {
	if pending == nil {
		return Now(known)
	}

	fu := newFuture[M]()
	pending.onComplete(func(fetched M, err error) {
		if err != nil {
			fu.complete(nil, err)
			return
		}
		merged := make(M, len(known)+len(fetched))
		for k, v := range known {
			merged[k] = v
		}
		for k, v := range fetched {
			merged[k] = v
		}
		fu.complete(merged, nil)
	})
	return fu
}
