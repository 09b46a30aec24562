/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package transientspace

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/transientspace/datastore"
	"github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/storagemodels"
)

// RoutingStorage is a datastore.Storage that serves each type from the
// backend registered for it, falling back to a default backend if one is set.
type RoutingStorage struct {
	mu       sync.RWMutex
	routes   map[reflect.Type]datastore.Storage
	fallback datastore.Storage
}

// NewRoutingStorage creates a RoutingStorage. fallback may be nil, in which
// case unrouted types are rejected.
func NewRoutingStorage(fallback datastore.Storage) *RoutingStorage {
	return &RoutingStorage{
		routes:   make(map[reflect.Type]datastore.Storage),
		fallback: fallback,
	}
}

// Route serves type t from backend.
func (r *RoutingStorage) Route(t reflect.Type, backend datastore.Storage) error {
	if backend == nil {
		return errors.NewValidationError("backend", "backend is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[t]; exists {
		return fmt.Errorf("storage for type %s already registered", registry.TypeName(t))
	}
	r.routes[t] = backend
	return nil
}

// Remove drops the route for t.
func (r *RoutingStorage) Remove(t reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[t]; !exists {
		return fmt.Errorf("storage for type %s not found", registry.TypeName(t))
	}
	delete(r.routes, t)
	return nil
}

// Types returns the routed types ordered by name.
func (r *RoutingStorage) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(r.routes))
	for t := range r.routes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return registry.TypeName(types[i]) < registry.TypeName(types[j])
	})
	return types
}

// Backend returns the storage serving t.
func (r *RoutingStorage) Backend(t reflect.Type) (datastore.Storage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.routes[t]; ok {
		return s, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, errors.NewUnmanagedTypeError(registry.TypeName(t))
}

// GetObjectByKey implements datastore.Storage.
func (r *RoutingStorage) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	s, err := r.Backend(t)
	if err != nil {
		return nil, err
	}
	return s.GetObjectByKey(ctx, t, key)
}

// GetObjects implements datastore.Storage.
func (r *RoutingStorage) GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty) ([]any, error) {
	s, err := r.Backend(t)
	if err != nil {
		return nil, err
	}
	return s.GetObjects(ctx, t, criteria, sorting)
}

// batchKey groups objects by backend. A backend whose dynamic type is not
// comparable cannot be a map key, so its objects are grouped by type.
type batchKey struct {
	backend datastore.Storage
	t       reflect.Type
}

func keyFor(s datastore.Storage, t reflect.Type) batchKey {
	if reflect.TypeOf(s).Comparable() {
		return batchKey{backend: s}
	}
	return batchKey{t: t}
}

type batch struct {
	backend                      datastore.Storage
	toInsert, toUpdate, toDelete []any
}

// SaveObjects splits the three sets by backend and calls each backend once,
// in the order the backends first appear. A backend of a non-comparable
// value type is called once per object type instead. A failing backend stops the
// remaining ones; writes already made by earlier backends stay applied.
func (r *RoutingStorage) SaveObjects(ctx context.Context, toInsert, toUpdate, toDelete []any) error {
	var batches []*batch
	index := make(map[batchKey]*batch)

	add := func(obj any, pick func(*batch) *[]any) error {
		t := reflect.TypeOf(obj)
		s, err := r.Backend(t)
		if err != nil {
			return err
		}
		k := keyFor(s, t)
		b, ok := index[k]
		if !ok {
			b = &batch{backend: s}
			index[k] = b
			batches = append(batches, b)
		}
		list := pick(b)
		*list = append(*list, obj)
		return nil
	}

	for _, obj := range toInsert {
		if err := add(obj, func(b *batch) *[]any { return &b.toInsert }); err != nil {
			return err
		}
	}
	for _, obj := range toUpdate {
		if err := add(obj, func(b *batch) *[]any { return &b.toUpdate }); err != nil {
			return err
		}
	}
	for _, obj := range toDelete {
		if err := add(obj, func(b *batch) *[]any { return &b.toDelete }); err != nil {
			return err
		}
	}

	for _, b := range batches {
		if err := b.backend.SaveObjects(ctx, b.toInsert, b.toUpdate, b.toDelete); err != nil {
			return err
		}
	}
	return nil
}
