package cachestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"go.mercari.io/dscache/cache/localcache"
	"go.mercari.io/dscache/internal/testutils"
)

func setup(t *testing.T, opts ...Option) (*Store, *testutils.MemoryStore, *entitymemcache.Memcache) {
	t.Helper()

	mem := testutils.NewMemoryStore()
	mc := entitymemcache.New(localcache.New())
	return New(mem, mc, opts...), mem, mc
}

func newEntity(key dscache.Key, name string) *dscache.Entity {
	return &dscache.Entity{
		Key:        key,
		Properties: dscache.PropertyList{{Name: "Name", Value: name}},
	}
}

func nameOf(e *dscache.Entity) string {
	if e == nil {
		return "<nil>"
	}
	v, _ := e.Properties.Get("Name")
	return fmt.Sprint(v)
}

func namesOf(m dscache.EntityMap) string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, nameOf(e))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	var logs []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	s, mem, _ := setup(t, WithLogger(logf))

	keyA := dscache.NameKey("Data", "a", nil)
	keyB := dscache.NameKey("Data", "b", nil)
	keyC := dscache.NameKey("Data", "c", nil)
	keyD := dscache.NameKey("Data", "d", nil)
	_, err := mem.PutMulti(ctx, []*dscache.Entity{newEntity(keyA, "A"), newEntity(keyB, "B")})
	if err != nil {
		t.Fatal(err)
	}

	// A becomes a positive entry, C a negative one.
	m, err := s.GetMulti(ctx, []dscache.Key{keyA, keyC})
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A" {
		t.Errorf("unexpected: %v", v)
	}

	mem.ResetCalls()

	m, err = s.GetMulti(ctx, []dscache.Key{keyA, keyB, keyC, keyD})
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A,B" {
		t.Errorf("unexpected: %v", v)
	}
	if v := m.Get(keyB); v == nil || !v.Key.Equal(keyB) {
		t.Errorf("unexpected: %v", v)
	}
	if v := fmt.Sprint(mem.Calls()); v != "[GetMulti len=2]" {
		t.Errorf("unexpected: %v", v)
	}

	// everything is known now.
	m, err = s.GetMulti(ctx, []dscache.Key{keyA, keyB, keyC, keyD})
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A,B" {
		t.Errorf("unexpected: %v", v)
	}
	if v := mem.Count("GetMulti"); v != 1 {
		t.Errorf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		cachestore.Get: len=2 hit=0 negative=0 miss=2
		cachestore.Get: len=4 hit=1 negative=1 miss=2
		cachestore.Get: len=4 hit=2 negative=2 miss=0
	`)
	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_GetDuplicatedKeys(t *testing.T) {
	ctx := context.Background()

	s, mem, _ := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := mem.PutMulti(ctx, []*dscache.Entity{newEntity(key, "A")}); err != nil {
		t.Fatal(err)
	}
	mem.ResetCalls()

	m, err := s.GetMulti(ctx, []dscache.Key{key, dscache.IDKey("Data", 1, nil)})
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A" {
		t.Errorf("unexpected: %v", v)
	}
	if v := fmt.Sprint(mem.Calls()); v != "[GetMulti len=1]" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_GetFailure(t *testing.T) {
	ctx := context.Background()

	s, mem, mc := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := mem.PutMulti(ctx, []*dscache.Entity{newEntity(key, "A")}); err != nil {
		t.Fatal(err)
	}

	expected := errors.New("backing store unavailable")
	mem.FailNext("GetMulti", expected)

	_, err := s.GetMulti(ctx, []dscache.Key{key})
	if err != expected {
		t.Fatalf("unexpected: %v", err)
	}

	b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	if !b.IsEmpty() {
		t.Errorf("unexpected: %v", b.Entity())
	}

	m, err := s.GetMulti(ctx, []dscache.Key{key})
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_GetRacingWrite(t *testing.T) {
	ctx := context.Background()

	s, mem, _ := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := mem.PutMulti(ctx, []*dscache.Entity{newEntity(key, "old")}); err != nil {
		t.Fatal(err)
	}

	// a write lands after the read fetched the old value, before it is cached.
	var once sync.Once
	mem.OnGetMulti = func(keys []dscache.Key) {
		once.Do(func() {
			if _, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(key, "new")}); err != nil {
				t.Error(err)
			}
		})
	}

	m, err := s.GetMulti(ctx, []dscache.Key{key})
	if err != nil {
		t.Fatal(err)
	}
	if v := nameOf(m.Get(key)); v != "old" {
		t.Errorf("unexpected: %v", v)
	}

	m, err = s.GetMulti(ctx, []dscache.Key{key})
	if err != nil {
		t.Fatal(err)
	}
	if v := nameOf(m.Get(key)); v != "new" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_GetOnlyHits(t *testing.T) {
	ctx := context.Background()

	s, mem, _ := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := mem.PutMulti(ctx, []*dscache.Entity{newEntity(key, "A")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMulti(ctx, []dscache.Key{key}); err != nil {
		t.Fatal(err)
	}

	fu := s.Get(ctx, key)
	select {
	case <-fu.Done():
	default:
		t.Error("a fully cached Get must be resolved already")
	}
	m, err := fu.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v := namesOf(m); v != "A" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_PutMultiEvicts(t *testing.T) {
	ctx := context.Background()

	s, mem, mc := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(key, "v1")}); err != nil {
		t.Fatal(err)
	}
	if m, err := s.GetMulti(ctx, []dscache.Key{key}); err != nil {
		t.Fatal(err)
	} else if v := nameOf(m.Get(key)); v != "v1" {
		t.Errorf("unexpected: %v", v)
	}

	if _, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(key, "v2")}); err != nil {
		t.Fatal(err)
	}
	if b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]; !b.IsEmpty() {
		t.Errorf("unexpected: %v", nameOf(b.Entity()))
	}
	if m, err := s.GetMulti(ctx, []dscache.Key{key}); err != nil {
		t.Fatal(err)
	} else if v := nameOf(m.Get(key)); v != "v2" {
		t.Errorf("unexpected: %v", v)
	}

	// evicted even when the write fails.
	expected := errors.New("write failed")
	mem.FailNext("PutMulti", expected)
	if _, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(key, "v3")}); err != expected {
		t.Errorf("unexpected: %v", err)
	}
	if b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]; !b.IsEmpty() {
		t.Errorf("unexpected: %v", nameOf(b.Entity()))
	}
}

func TestStore_PutMultiIncompleteKey(t *testing.T) {
	ctx := context.Background()

	s, _, _ := setup(t)

	// the negative entry of the allocated key must not survive the put.
	if _, err := s.GetMulti(ctx, []dscache.Key{dscache.IDKey("Data", 1, nil)}); err != nil {
		t.Fatal(err)
	}

	keys, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(dscache.IncompleteKey("Data", nil), "A")})
	if err != nil {
		t.Fatal(err)
	}
	if v := keys[0].String(); v != "/Data,1" {
		t.Fatalf("unexpected: %v", v)
	}

	m, err := s.GetMulti(ctx, keys)
	if err != nil {
		t.Fatal(err)
	}
	if v := nameOf(m.Get(keys[0])); v != "A" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestStore_DeleteMultiEvicts(t *testing.T) {
	ctx := context.Background()

	s, _, _ := setup(t)

	key := dscache.IDKey("Data", 1, nil)
	if _, err := s.PutMulti(ctx, []*dscache.Entity{newEntity(key, "A")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMulti(ctx, []dscache.Key{key}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteMulti(ctx, []dscache.Key{key}); err != nil {
		t.Fatal(err)
	}

	m, err := s.GetMulti(ctx, []dscache.Key{key})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(m); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
}
