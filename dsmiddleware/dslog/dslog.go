package dslog

import (
	"context"
	"sync"

	"go.mercari.io/dscache"
)

var _ dscache.Store = &logger{}

// NewLogger returns a Store that logs every call made to next.
func NewLogger(prefix string, logf func(ctx context.Context, format string, args ...interface{}), next dscache.Store) dscache.Store {
	return &logger{Prefix: prefix, Logf: logf, next: next, counter: 1}
}

type logger struct {
	Prefix string
	Logf   func(ctx context.Context, format string, args ...interface{})

	next dscache.Store

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

func (l *logger) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"GetMulti #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	entities, err := l.next.GetMulti(ctx, keys)

	if err == nil {
		l.Logf(ctx, l.Prefix+"GetMulti #%d, len(entities)=%d", cnt, len(entities))
	} else {
		l.Logf(ctx, l.Prefix+"GetMulti #%d, err=%s", cnt, err.Error())
	}

	return entities, err
}

func (l *logger) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	cnt := l.count()

	keys := make([]dscache.Key, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.Key)
	}
	l.Logf(ctx, l.Prefix+"PutMulti #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	keys, err := l.next.PutMulti(ctx, entities)

	if err == nil {
		l.Logf(ctx, l.Prefix+"PutMulti #%d, keys=[%s]", cnt, dscache.KeysToString(keys))
	} else {
		l.Logf(ctx, l.Prefix+"PutMulti #%d, err=%s", cnt, err.Error())
	}

	return keys, err
}

func (l *logger) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"DeleteMulti #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	err := l.next.DeleteMulti(ctx, keys)

	if err != nil {
		l.Logf(ctx, l.Prefix+"DeleteMulti #%d, err=%s", cnt, err.Error())
	}

	return err
}

func (l *logger) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"NewTransaction #%d", cnt)

	tx, err := l.next.NewTransaction(ctx)
	if err != nil {
		l.Logf(ctx, l.Prefix+"NewTransaction #%d, err=%s", cnt, err.Error())
		return nil, err
	}

	return &txLogger{l: l, ctx: ctx, tx: tx}, nil
}

func (l *logger) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	cnt := l.count()

	l.Logf(ctx, l.Prefix+"Run #%d, q=%s", cnt, q.String())

	return &iterLogger{l: l, ctx: ctx, q: q, it: l.next.Run(ctx, q)}
}

func (l *logger) DecodeCursor(s string) (dscache.Cursor, error) {
	return l.next.DecodeCursor(s)
}

type iterLogger struct {
	l   *logger
	ctx context.Context
	q   *dscache.Query
	it  dscache.Iterator
}

func (it *iterLogger) Next() (dscache.Key, error) {
	cnt := it.l.count()

	it.l.Logf(it.ctx, it.l.Prefix+"Next #%d, q=%s", cnt, it.q.String())

	key, err := it.it.Next()

	if err == nil {
		it.l.Logf(it.ctx, it.l.Prefix+"Next #%d, key=%s", cnt, key.String())
	} else {
		it.l.Logf(it.ctx, it.l.Prefix+"Next #%d, err=%s", cnt, err.Error())
	}

	return key, err
}

func (it *iterLogger) Cursor() (dscache.Cursor, error) {
	return it.it.Cursor()
}

type txPutEntity struct {
	Key        dscache.Key
	PendingKey dscache.PendingKey
}

type txLogger struct {
	l   *logger
	ctx context.Context
	tx  dscache.Transaction

	m       sync.Mutex
	putLogs []*txPutEntity
}

func (tx *txLogger) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	l := tx.l
	cnt := l.count()

	l.Logf(tx.ctx, l.Prefix+"GetMultiWithTx #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	entities, err := tx.tx.GetMulti(keys)

	if err != nil {
		l.Logf(tx.ctx, l.Prefix+"GetMultiWithTx #%d, err=%s", cnt, err.Error())
	}

	return entities, err
}

func (tx *txLogger) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	l := tx.l
	cnt := l.count()

	keys := make([]dscache.Key, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.Key)
	}
	l.Logf(tx.ctx, l.Prefix+"PutMultiWithTx #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	pKeys, err := tx.tx.PutMulti(entities)
	if err != nil {
		l.Logf(tx.ctx, l.Prefix+"PutMultiWithTx #%d, err=%s", cnt, err.Error())
		return pKeys, err
	}
	if len(keys) != len(pKeys) {
		l.Logf(tx.ctx, l.Prefix+"PutMultiWithTx #%d, keys length mismatch len(keys)=%d, len(pKeys)=%d", cnt, len(keys), len(pKeys))
		return pKeys, err
	}

	tx.m.Lock()
	for idx, key := range keys {
		if key.Incomplete() {
			tx.putLogs = append(tx.putLogs, &txPutEntity{PendingKey: pKeys[idx]})
		} else {
			tx.putLogs = append(tx.putLogs, &txPutEntity{Key: key})
		}
	}
	tx.m.Unlock()

	return pKeys, err
}

func (tx *txLogger) DeleteMulti(keys []dscache.Key) error {
	l := tx.l
	cnt := l.count()

	l.Logf(tx.ctx, l.Prefix+"DeleteMultiWithTx #%d, len(keys)=%d, keys=[%s]", cnt, len(keys), dscache.KeysToString(keys))

	err := tx.tx.DeleteMulti(keys)

	if err != nil {
		l.Logf(tx.ctx, l.Prefix+"DeleteMultiWithTx #%d, err=%s", cnt, err.Error())
	}

	return err
}

func (tx *txLogger) Commit() (dscache.Commit, error) {
	l := tx.l
	cnt := l.count()

	commit, err := tx.tx.Commit()
	if err != nil {
		l.Logf(tx.ctx, l.Prefix+"Commit #%d, err=%s", cnt, err.Error())
		return nil, err
	}

	tx.m.Lock()
	keys := make([]dscache.Key, 0, len(tx.putLogs))
	for _, putLog := range tx.putLogs {
		if putLog.Key != nil {
			keys = append(keys, putLog.Key)
			continue
		}
		if key := commit.Key(putLog.PendingKey); key != nil {
			keys = append(keys, key)
		}
	}
	tx.putLogs = nil
	tx.m.Unlock()

	l.Logf(tx.ctx, l.Prefix+"Commit #%d Put keys=[%s]", cnt, dscache.KeysToString(keys))

	return commit, nil
}

func (tx *txLogger) Rollback() error {
	l := tx.l
	cnt := l.count()

	l.Logf(tx.ctx, l.Prefix+"Rollback #%d", cnt)

	return tx.tx.Rollback()
}
