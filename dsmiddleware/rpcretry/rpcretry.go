package rpcretry

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mercari.io/dscache"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ dscache.Store = &retryHandler{}
var _ dscache.Transaction = &retryTx{}

// New returns a Store that retries failed calls to next.
// Queries are handed through as is; Iterator.Next is not idempotent.
func New(next dscache.Store, opts ...RetryOption) dscache.Store {
	rh := &retryHandler{
		next:               next,
		retryLimit:         3,
		minBackoffDuration: 100 * time.Millisecond,
		logf:               func(ctx context.Context, format string, args ...interface{}) {},
	}

	for _, opt := range opts {
		opt.Apply(rh)
	}

	return rh
}

type retryHandler struct {
	next               dscache.Store
	retryLimit         int
	minBackoffDuration time.Duration
	maxBackoffDuration time.Duration
	maxDoublings       int
	logf               func(ctx context.Context, format string, args ...interface{})
}

type RetryOption interface {
	Apply(*retryHandler)
}

func (rh *retryHandler) waitDuration(retry int) time.Duration {
	d := 10 * time.Millisecond
	if 0 <= rh.minBackoffDuration {
		d = rh.minBackoffDuration
	}

	m := retry
	if 0 < rh.maxDoublings && rh.maxDoublings < m {
		m = rh.maxDoublings
	}
	if m <= 0 {
		m = 1
	}

	wait := math.Pow(2, float64(m-1)) * float64(d)

	if 0 < rh.maxBackoffDuration {
		wait = math.Min(wait, float64(rh.maxBackoffDuration))
	}

	return time.Duration(wait)
}

// retryable reports whether err may go away on another attempt.
// Errors that carry a gRPC status are retried only for transient codes.
func retryable(err error) bool {
	var merr dscache.MultiError
	switch {
	case errors.As(err, &merr):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, dscache.ErrNoSuchEntity),
		errors.Is(err, dscache.ErrInvalidKey),
		errors.Is(err, dscache.ErrInvalidEntityType),
		errors.Is(err, dscache.ErrConcurrentTransaction):
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Aborted, codes.Unknown:
		return true
	default:
		return false
	}
}

func (rh *retryHandler) try(ctx context.Context, logPrefix string, f func() error) {
	try := 1
	for {
		err := f()
		if err == nil || !retryable(err) {
			return
		}
		if rh.retryLimit <= try {
			return
		}
		d := rh.waitDuration(try)
		rh.logf(ctx, "%s: err=%s, will be retry #%d after %s", logPrefix, err.Error(), try, d.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
		try++
	}
}

func (rh *retryHandler) GetMulti(ctx context.Context, keys []dscache.Key) (retMap dscache.EntityMap, retErr error) {
	rh.try(ctx, "dsmiddleware/rpcretry.GetMulti", func() error {
		retMap, retErr = rh.next.GetMulti(ctx, keys)
		return retErr
	})
	return
}

func (rh *retryHandler) PutMulti(ctx context.Context, entities []*dscache.Entity) (retKeys []dscache.Key, retErr error) {
	rh.try(ctx, "dsmiddleware/rpcretry.PutMulti", func() error {
		retKeys, retErr = rh.next.PutMulti(ctx, entities)
		return retErr
	})
	return
}

func (rh *retryHandler) DeleteMulti(ctx context.Context, keys []dscache.Key) (retErr error) {
	rh.try(ctx, "dsmiddleware/rpcretry.DeleteMulti", func() error {
		retErr = rh.next.DeleteMulti(ctx, keys)
		return retErr
	})
	return
}

func (rh *retryHandler) NewTransaction(ctx context.Context) (retTx dscache.Transaction, retErr error) {
	rh.try(ctx, "dsmiddleware/rpcretry.NewTransaction", func() error {
		retTx, retErr = rh.next.NewTransaction(ctx)
		return retErr
	})
	if retErr != nil {
		return nil, retErr
	}
	return &retryTx{rh: rh, ctx: ctx, next: retTx}, nil
}

func (rh *retryHandler) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	return rh.next.Run(ctx, q)
}

func (rh *retryHandler) DecodeCursor(s string) (dscache.Cursor, error) {
	return rh.next.DecodeCursor(s)
}

type retryTx struct {
	rh   *retryHandler
	ctx  context.Context
	next dscache.Transaction
}

func (tx *retryTx) GetMulti(keys []dscache.Key) (retMap dscache.EntityMap, retErr error) {
	tx.rh.try(tx.ctx, "dsmiddleware/rpcretry.GetMultiWithTx", func() error {
		retMap, retErr = tx.next.GetMulti(keys)
		return retErr
	})
	return
}

func (tx *retryTx) PutMulti(entities []*dscache.Entity) (retPKeys []dscache.PendingKey, retErr error) {
	tx.rh.try(tx.ctx, "dsmiddleware/rpcretry.PutMultiWithTx", func() error {
		retPKeys, retErr = tx.next.PutMulti(entities)
		return retErr
	})
	return
}

func (tx *retryTx) DeleteMulti(keys []dscache.Key) (retErr error) {
	tx.rh.try(tx.ctx, "dsmiddleware/rpcretry.DeleteMultiWithTx", func() error {
		retErr = tx.next.DeleteMulti(keys)
		return retErr
	})
	return
}

// Commit is not retried, a second attempt could apply the mutations twice.
func (tx *retryTx) Commit() (dscache.Commit, error) {
	return tx.next.Commit()
}

func (tx *retryTx) Rollback() error {
	return tx.next.Rollback()
}
