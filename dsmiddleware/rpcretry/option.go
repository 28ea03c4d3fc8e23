package rpcretry

import (
	"context"
	"time"
)

// WithRetryLimit sets the number of attempts, the first one included.
func WithRetryLimit(limit int) RetryOption {
	return &withRetryLimit{limit}
}

type withRetryLimit struct{ retryLimit int }

func (w *withRetryLimit) Apply(rh *retryHandler) {
	rh.retryLimit = w.retryLimit
}

// WithMinBackoffDuration sets the wait before the first retry. It doubles on each retry.
func WithMinBackoffDuration(d time.Duration) RetryOption {
	return &withMinBackoffDuration{d}
}

type withMinBackoffDuration struct{ d time.Duration }

func (w *withMinBackoffDuration) Apply(rh *retryHandler) {
	rh.minBackoffDuration = w.d
}

// WithMaxBackoffDuration caps the wait between attempts.
func WithMaxBackoffDuration(d time.Duration) RetryOption {
	return &withMaxBackoffDuration{d}
}

type withMaxBackoffDuration struct{ d time.Duration }

func (w *withMaxBackoffDuration) Apply(rh *retryHandler) {
	rh.maxBackoffDuration = w.d
}

// WithMaxDoublings caps how many times the wait doubles.
func WithMaxDoublings(maxDoublings int) RetryOption {
	return &withMaxDoublings{maxDoublings}
}

type withMaxDoublings struct{ maxDoublings int }

func (w *withMaxDoublings) Apply(rh *retryHandler) {
	rh.maxDoublings = w.maxDoublings
}

// WithLogf sets the logger that reports each retry.
func WithLogf(logf func(ctx context.Context, format string, args ...interface{})) RetryOption {
	return &withLogf{logf}
}

type withLogf struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogf) Apply(rh *retryHandler) {
	rh.logf = w.logf
}
