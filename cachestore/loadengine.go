package cachestore

import (
	"context"
	"sync"

	"go.mercari.io/dscache"
	"go.mercari.io/dscache/hybrid"
)

// LoadEngine collects keys and loads them in one round trip.
// Loads of the same key share one Ref until the Execute covering it has finished.
// After that the engine forgets the Ref, so it only holds the batch being built.
type LoadEngine struct {
	s *Store

	m      sync.Mutex
	refs   map[string]*Ref
	queued []*Ref
}

// Ref is the handle of a queued load.
type Ref struct {
	key    dscache.Key
	entity *dscache.Entity
	done   bool
	err    error
}

func (r *Ref) Key() dscache.Key {
	return r.key
}

// Entity returns the loaded entity, nil if it does not exist or is not loaded yet.
func (r *Ref) Entity() *dscache.Entity {
	return r.entity
}

// Loaded reports whether the Execute that covered r has completed successfully.
func (r *Ref) Loaded() bool {
	return r.done && r.err == nil
}

func (r *Ref) Err() error {
	return r.err
}

// Value returns the entity as an untyped value.
// A missing entity is a nil interface, never a typed nil.
func (r *Ref) Value() interface{} {
	if r.entity == nil {
		return nil
	}
	return r.entity
}

// NewLoadEngine returns an empty LoadEngine on s.
func (s *Store) NewLoadEngine() *LoadEngine {
	return &LoadEngine{
		s:    s,
		refs: make(map[string]*Ref),
	}
}

// Load queues key. Nothing is fetched before Execute.
func (e *LoadEngine) Load(key dscache.Key) *Ref {
	e.m.Lock()
	defer e.m.Unlock()

	encoded := key.Encode()
	if ref, ok := e.refs[encoded]; ok {
		return ref
	}

	ref := &Ref{key: key}
	e.refs[encoded] = ref
	e.queued = append(e.queued, ref)

	return ref
}

// Execute loads every queued key with a single Get.
// The refs it covered are forgotten either way; a later Load of the same key starts a new Ref.
func (e *LoadEngine) Execute(ctx context.Context) error {
	e.m.Lock()
	queued := e.queued
	e.queued = nil
	e.m.Unlock()

	if len(queued) == 0 {
		return nil
	}

	keys := make([]dscache.Key, 0, len(queued))
	for _, ref := range queued {
		keys = append(keys, ref.key)
	}

	e.s.logf(ctx, "cachestore.LoadEngine.Execute: len=%d", len(keys))

	entities, err := e.s.Get(ctx, keys...).Get(ctx)

	e.m.Lock()
	defer e.m.Unlock()
	for _, ref := range queued {
		if err != nil {
			ref.err = err
		} else {
			ref.entity = entities.Get(ref.key)
		}
		ref.done = true
		e.forget(ref)
	}

	return err
}

func (e *LoadEngine) forget(ref *Ref) {
	encoded := ref.key.Encode()
	if e.refs[encoded] == ref {
		delete(e.refs, encoded)
	}
}

// Pending returns the number of refs the engine still holds.
func (e *LoadEngine) Pending() int {
	e.m.Lock()
	defer e.m.Unlock()
	return len(e.refs)
}

// Loader returns e as a hybrid.Loader.
func (e *LoadEngine) Loader() hybrid.Loader {
	return hybridLoader{e}
}

type hybridLoader struct {
	e *LoadEngine
}

func (l hybridLoader) Load(key dscache.Key) hybrid.Result {
	return l.e.Load(key)
}

func (l hybridLoader) Execute(ctx context.Context) error {
	return l.e.Execute(ctx)
}
