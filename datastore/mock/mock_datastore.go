/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory transient implementation of datastore.Storage
package mock

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/session"
	"github.com/suparena/transientspace/storagemodels"
)

// SaveBatch records the arguments of one SaveObjects call
type SaveBatch struct {
	Insert []any
	Update []any
	Delete []any
}

// Storage is an in-memory datastore.Storage. It keeps private copies of the
// saved objects and hands out a fresh copy on every read, so two reads of
// the same key never share an instance.
type Storage struct {
	mu         sync.RWMutex
	data       map[reflect.Type]map[any]any
	getKeyFunc func(obj any) (any, error)
	getError   error
	queryError error
	saveError  error

	getCalls   int
	queryCalls int
	saves      []SaveBatch
}

// New creates a new mock Storage
func New() *Storage {
	return &Storage{
		data:       make(map[reflect.Type]map[any]any),
		getKeyFunc: registry.KeyOf,
	}
}

// WithGetKeyFunc sets a custom function to extract keys from objects
func (m *Storage) WithGetKeyFunc(f func(obj any) (any, error)) *Storage {
	m.getKeyFunc = f
	return m
}

// WithGetError makes GetObjectByKey operations return an error
func (m *Storage) WithGetError(err error) *Storage {
	m.getError = err
	return m
}

// WithQueryError makes GetObjects operations return an error
func (m *Storage) WithQueryError(err error) *Storage {
	m.queryError = err
	return m
}

// WithSaveError makes SaveObjects operations return an error
func (m *Storage) WithSaveError(err error) *Storage {
	m.saveError = err
	return m
}

// GetObjectByKey returns a copy of the stored object, or nil when absent
func (m *Storage) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return nil, errors.NewValidationError("key", fmt.Sprintf("%T is not comparable", key))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if obj, exists := m.data[t][key]; exists {
		return clone(obj), nil
	}
	return nil, nil
}

// GetObjects returns copies of the stored objects of type t. Criteria must be
// nil or a storagemodels.Filter.
func (m *Storage) GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty) ([]any, error) {
	m.mu.Lock()
	m.queryCalls++
	m.mu.Unlock()

	if m.queryError != nil {
		return nil, m.queryError
	}

	var filter storagemodels.Filter
	switch c := criteria.(type) {
	case nil:
	case storagemodels.Filter:
		filter = c
	case func(any) bool:
		filter = c
	default:
		return nil, errors.NewValidationError("criteria", fmt.Sprintf("unsupported criteria %T", criteria))
	}

	m.mu.RLock()
	results := make([]any, 0, len(m.data[t]))
	for _, v := range m.data[t] {
		results = append(results, clone(v))
	}
	m.mu.RUnlock()

	results = filter.Apply(results)
	if len(sorting) == 0 {
		// map order is random, keep reads deterministic
		sorting = []storagemodels.SortProperty{{Property: registry.KeyProperty(t)}}
	}
	if err := storagemodels.SortObjects(results, sorting); err != nil {
		return nil, errors.NewValidationError("sorting", err.Error())
	}
	return results, nil
}

// SaveObjects applies the batch atomically: every object is validated before
// any change is made.
func (m *Storage) SaveObjects(ctx context.Context, toInsert, toUpdate, toDelete []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves = append(m.saves, SaveBatch{
		Insert: append([]any(nil), toInsert...),
		Update: append([]any(nil), toUpdate...),
		Delete: append([]any(nil), toDelete...),
	})

	if m.saveError != nil {
		return m.saveError
	}

	type change struct {
		t   reflect.Type
		key any
		obj any
	}
	keyed := func(objs []any) ([]change, error) {
		out := make([]change, 0, len(objs))
		for _, obj := range objs {
			key, err := m.extractKey(obj)
			if err != nil {
				return nil, err
			}
			out = append(out, change{t: reflect.TypeOf(obj), key: key, obj: obj})
		}
		return out, nil
	}

	inserts, err := keyed(toInsert)
	if err != nil {
		return err
	}
	updates, err := keyed(toUpdate)
	if err != nil {
		return err
	}
	deletes, err := keyed(toDelete)
	if err != nil {
		return err
	}

	pending := make(map[reflect.Type]map[any]bool)
	for _, c := range inserts {
		if _, exists := m.data[c.t][c.key]; exists || pending[c.t][c.key] {
			return errors.NewAlreadyExistsError(registry.TypeName(c.t), fmt.Sprint(c.key))
		}
		if pending[c.t] == nil {
			pending[c.t] = make(map[any]bool)
		}
		pending[c.t][c.key] = true
	}
	for _, c := range updates {
		if _, exists := m.data[c.t][c.key]; !exists {
			return errors.NewNotFoundError(registry.TypeName(c.t), fmt.Sprint(c.key))
		}
	}
	for _, c := range deletes {
		if _, exists := m.data[c.t][c.key]; !exists {
			return errors.NewNotFoundError(registry.TypeName(c.t), fmt.Sprint(c.key))
		}
	}

	for _, c := range append(inserts, updates...) {
		m.put(c.t, c.key, c.obj)
	}
	for _, c := range deletes {
		delete(m.data[c.t], c.key)
	}
	return nil
}

// Helper methods for testing

// Seed stores copies of objs directly, replacing existing keys
func (m *Storage) Seed(objs ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obj := range objs {
		key, err := m.extractKey(obj)
		if err != nil {
			return err
		}
		m.put(reflect.TypeOf(obj), key, obj)
	}
	return nil
}

// Stored returns a copy of the stored object, bypassing call accounting
func (m *Storage) Stored(t reflect.Type, key any) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.data[t][key]
	if !ok {
		return nil, false
	}
	return clone(obj), true
}

// Count returns the number of stored objects of type t
func (m *Storage) Count(t reflect.Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[t])
}

// GetCalls returns how many times GetObjectByKey was called
func (m *Storage) GetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCalls
}

// QueryCalls returns how many times GetObjects was called
func (m *Storage) QueryCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryCalls
}

// Saves returns every recorded SaveObjects batch
func (m *Storage) Saves() []SaveBatch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SaveBatch(nil), m.saves...)
}

// ResetCalls zeroes the call counters and recorded batches
func (m *Storage) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls = 0
	m.queryCalls = 0
	m.saves = nil
}

// Clear removes all data
func (m *Storage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[reflect.Type]map[any]any)
}

func (m *Storage) put(t reflect.Type, key, obj any) {
	if m.data[t] == nil {
		m.data[t] = make(map[any]any)
	}
	m.data[t][key] = clone(obj)
}

func (m *Storage) extractKey(obj any) (any, error) {
	if obj == nil {
		return nil, errors.NewValidationError("object", "nil object")
	}
	key, err := m.getKeyFunc(obj)
	if err != nil {
		return nil, errors.NewValidationError("key", err.Error())
	}
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return nil, errors.NewValidationError("key", fmt.Sprintf("unusable key %v", key))
	}
	return key, nil
}

// clone makes a shallow copy of a pointer to struct, detached from any session.
func clone(obj any) any {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return obj
	}
	c := reflect.New(v.Elem().Type())
	c.Elem().Set(v.Elem())
	out := c.Interface()
	if l, ok := out.(session.Link); ok {
		l.SetObjectSpace(nil)
	}
	return out
}
