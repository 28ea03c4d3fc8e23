package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mercari.io/dscache"
	"google.golang.org/api/iterator"
)

var _ dscache.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory dscache.Store for tests.
// It records every call and can be told to fail the next call of an operation.
type MemoryStore struct {
	m        sync.Mutex
	entities map[string]*dscache.Entity
	nextID   int64
	calls    []string
	failures map[string]error

	// OnGetMulti runs after GetMulti has read its result and before it returns.
	OnGetMulti func(keys []dscache.Key)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]*dscache.Entity),
		failures: make(map[string]error),
	}
}

// FailNext makes the next call of op return err.
func (s *MemoryStore) FailNext(op string, err error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.failures[op] = err
}

// Calls returns the calls made so far, e.g. "GetMulti len=2".
func (s *MemoryStore) Calls() []string {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times op was called.
func (s *MemoryStore) Count(op string) int {
	s.m.Lock()
	defer s.m.Unlock()
	cnt := 0
	for _, c := range s.calls {
		if len(c) >= len(op) && c[:len(op)] == op && (len(c) == len(op) || c[len(op)] == ' ') {
			cnt++
		}
	}
	return cnt
}

func (s *MemoryStore) ResetCalls() {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls = nil
}

// record must be called with s.m held.
func (s *MemoryStore) record(op string, format string, args ...interface{}) error {
	call := op
	if format != "" {
		call += " " + fmt.Sprintf(format, args...)
	}
	s.calls = append(s.calls, call)
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// Len returns the number of stored entities.
func (s *MemoryStore) Len() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.entities)
}

func (s *MemoryStore) GetMulti(ctx context.Context, keys []dscache.Key) (dscache.EntityMap, error) {
	s.m.Lock()
	if err := s.record("GetMulti", "len=%d", len(keys)); err != nil {
		s.m.Unlock()
		return nil, err
	}
	result := make(dscache.EntityMap, len(keys))
	for _, key := range keys {
		if e, ok := s.entities[key.Encode()]; ok {
			result.Put(e)
		}
	}
	s.m.Unlock()

	if s.OnGetMulti != nil {
		s.OnGetMulti(keys)
	}

	return result, nil
}

func (s *MemoryStore) PutMulti(ctx context.Context, entities []*dscache.Entity) ([]dscache.Key, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.record("PutMulti", "len=%d", len(entities)); err != nil {
		return nil, err
	}

	return s.put(entities), nil
}

// put must be called with s.m held.
func (s *MemoryStore) put(entities []*dscache.Entity) []dscache.Key {
	keys := make([]dscache.Key, 0, len(entities))
	for _, e := range entities {
		key := e.Key
		for key.Incomplete() {
			s.nextID++
			allocated := dscache.WithNamespace(dscache.IDKey(e.Key.Kind(), s.nextID, e.Key.ParentKey()), e.Key.Namespace())
			if _, ok := s.entities[allocated.Encode()]; !ok {
				key = allocated
			}
		}
		s.entities[key.Encode()] = &dscache.Entity{Key: key, Properties: e.Properties}
		keys = append(keys, key)
	}
	return keys
}

func (s *MemoryStore) DeleteMulti(ctx context.Context, keys []dscache.Key) error {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.record("DeleteMulti", "len=%d", len(keys)); err != nil {
		return err
	}
	for _, key := range keys {
		delete(s.entities, key.Encode())
	}
	return nil
}

func (s *MemoryStore) DecodeCursor(str string) (dscache.Cursor, error) {
	if str == "" {
		return memCursor(""), nil
	}
	if _, err := dscache.DecodeKey(str); err != nil {
		return nil, err
	}
	return memCursor(str), nil
}

// Run returns the keys of the entities of q.Kind, ordered by ID and then name.
// Only equality filters of the form "Prop =" are understood.
func (s *MemoryStore) Run(ctx context.Context, q *dscache.Query) dscache.Iterator {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.record("Run", "kind=%s", q.Kind); err != nil {
		return &memIterator{err: err}
	}

	var keys []dscache.Key
	for _, e := range s.entities {
		if e.Key.Kind() != q.Kind || e.Key.Namespace() != q.Namespace {
			continue
		}
		if q.Ancestor != nil && !hasAncestor(e.Key, q.Ancestor) {
			continue
		}
		if !matchFilters(e, q.Filter) {
			continue
		}
		keys = append(keys, e.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID() != keys[j].ID() {
			return keys[i].ID() < keys[j].ID()
		}
		return keys[i].Name() < keys[j].Name()
	})

	start := memCursor("")
	if c, ok := q.Start.(memCursor); ok && c != "" {
		start = c
		for idx, key := range keys {
			if key.Encode() == string(c) {
				keys = keys[idx+1:]
				break
			}
		}
	}
	if q.Offset > 0 {
		if q.Offset >= len(keys) {
			keys = nil
		} else {
			keys = keys[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(keys) {
		keys = keys[:q.Limit]
	}

	return &memIterator{keys: keys, cursor: start}
}

func hasAncestor(key, ancestor dscache.Key) bool {
	for p := key.ParentKey(); p != nil; p = p.ParentKey() {
		if p.Equal(ancestor) {
			return true
		}
	}
	return false
}

func matchFilters(e *dscache.Entity, filters []*dscache.QueryFilterCondition) bool {
	for _, f := range filters {
		var name, op string
		fmt.Sscan(f.Filter, &name, &op)
		if op != "=" {
			return false
		}
		v, ok := e.Properties.Get(name)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

type memCursor string

func (c memCursor) String() string {
	return string(c)
}

type memIterator struct {
	keys   []dscache.Key
	cursor memCursor
	err    error
}

func (it *memIterator) Next() (dscache.Key, error) {
	if it.err != nil {
		return nil, it.err
	}
	if len(it.keys) == 0 {
		return nil, iterator.Done
	}
	key := it.keys[0]
	it.keys = it.keys[1:]
	it.cursor = memCursor(key.Encode())
	return key, nil
}

func (it *memIterator) Cursor() (dscache.Cursor, error) {
	if it.err != nil {
		return nil, it.err
	}
	return it.cursor, nil
}

// NewTransaction buffers mutations until Commit.
// Reads inside the transaction see the committed state only.
func (s *MemoryStore) NewTransaction(ctx context.Context) (dscache.Transaction, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.record("NewTransaction", ""); err != nil {
		return nil, err
	}
	return &memTransaction{s: s, ctx: ctx}, nil
}

type memTransaction struct {
	s       *MemoryStore
	ctx     context.Context
	puts    []*dscache.Entity
	deletes []dscache.Key
	done    bool
}

type contextPendingKey struct{}

type pendingKey struct {
	idx int
}

func (p *pendingKey) StoredContext() context.Context {
	return context.WithValue(context.Background(), contextPendingKey{}, p)
}

type memCommit struct {
	keys []dscache.Key
}

func (c *memCommit) Key(p dscache.PendingKey) dscache.Key {
	pk, ok := p.StoredContext().Value(contextPendingKey{}).(*pendingKey)
	if !ok || pk.idx >= len(c.keys) {
		return nil
	}
	return c.keys[pk.idx]
}

func (tx *memTransaction) GetMulti(keys []dscache.Key) (dscache.EntityMap, error) {
	return tx.s.GetMulti(tx.ctx, keys)
}

func (tx *memTransaction) PutMulti(entities []*dscache.Entity) ([]dscache.PendingKey, error) {
	pKeys := make([]dscache.PendingKey, 0, len(entities))
	for _, e := range entities {
		pKeys = append(pKeys, &pendingKey{idx: len(tx.puts)})
		tx.puts = append(tx.puts, e)
	}
	return pKeys, nil
}

func (tx *memTransaction) DeleteMulti(keys []dscache.Key) error {
	tx.deletes = append(tx.deletes, keys...)
	return nil
}

func (tx *memTransaction) Commit() (dscache.Commit, error) {
	s := tx.s
	s.m.Lock()
	defer s.m.Unlock()

	if tx.done {
		return nil, fmt.Errorf("testutils: transaction already finished")
	}
	tx.done = true
	if err := s.record("Commit", "puts=%d deletes=%d", len(tx.puts), len(tx.deletes)); err != nil {
		return nil, err
	}

	keys := s.put(tx.puts)
	for _, key := range tx.deletes {
		delete(s.entities, key.Encode())
	}

	return &memCommit{keys: keys}, nil
}

func (tx *memTransaction) Rollback() error {
	s := tx.s
	s.m.Lock()
	defer s.m.Unlock()

	if tx.done {
		return fmt.Errorf("testutils: transaction already finished")
	}
	tx.done = true
	return s.record("Rollback", "")
}
