/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectmap

import (
	"context"
	"fmt"
	"reflect"

	"github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/session"
)

// typedMap holds the instances of one managed type. byInstance is the
// reverse index of byKey.
type typedMap struct {
	byKey      map[any]any
	byInstance map[any]any
}

func newTypedMap() *typedMap {
	return &typedMap{
		byKey:      make(map[any]any),
		byInstance: make(map[any]any),
	}
}

// ObjectMap maps (type, key) pairs to the single live instance materialized
// for them in one session. It is owned by one adapter and is not safe for
// concurrent use.
type ObjectMap struct {
	types map[reflect.Type]*typedMap
	order []reflect.Type
}

// New creates an ObjectMap managing the given types. Duplicate and nil types are ignored.
func New(types ...reflect.Type) *ObjectMap {
	m := &ObjectMap{
		types: make(map[reflect.Type]*typedMap, len(types)),
	}
	for _, t := range types {
		if t == nil {
			continue
		}
		if _, exists := m.types[t]; exists {
			continue
		}
		m.types[t] = newTypedMap()
		m.order = append(m.order, t)
	}
	return m
}

// IsManaged reports whether t was registered at construction.
func (m *ObjectMap) IsManaged(t reflect.Type) bool {
	_, ok := m.types[t]
	return ok
}

// ManagedTypes returns the managed types in registration order.
func (m *ObjectMap) ManagedTypes() []reflect.Type {
	out := make([]reflect.Type, len(m.order))
	copy(out, m.order)
	return out
}

// Contains reports whether obj is registered for its runtime type.
func (m *ObjectMap) Contains(obj any) bool {
	if obj == nil {
		return false
	}
	tm, ok := m.types[reflect.TypeOf(obj)]
	if !ok || !isComparable(obj) {
		return false
	}
	_, ok = tm.byInstance[obj]
	return ok
}

// Lookup returns the instance registered for (t, key).
func (m *ObjectMap) Lookup(t reflect.Type, key any) (any, bool) {
	tm, ok := m.types[t]
	if !ok || !isComparable(key) {
		return nil, false
	}
	obj, ok := tm.byKey[key]
	return obj, ok
}

// Register maps (t, key) to obj. It is a no-op for unmanaged types. It fails
// with an invariant violation when key is already present or obj is already
// registered under another key; the existing entry is never overwritten.
func (m *ObjectMap) Register(t reflect.Type, key any, obj any) error {
	tm, ok := m.types[t]
	if !ok {
		return nil
	}
	if obj == nil {
		return errors.NewValidationError("object", "cannot register a nil object")
	}
	if !isComparable(key) {
		return errors.NewValidationError("key", fmt.Sprintf("%T is not comparable", key))
	}
	if !isComparable(obj) {
		return errors.NewValidationError("object", fmt.Sprintf("%T is not comparable", obj))
	}

	name := registry.TypeName(t)
	if _, exists := tm.byKey[key]; exists {
		return errors.NewDuplicateKeyError(name, fmt.Sprint(key))
	}
	if existing, exists := tm.byInstance[obj]; exists {
		return errors.NewInvariantViolationError(name, fmt.Sprint(key),
			fmt.Errorf("instance already registered under key %v", existing))
	}

	tm.byKey[key] = obj
	tm.byInstance[obj] = key
	return nil
}

// Unregister removes obj from the map. It reports whether obj was registered.
func (m *ObjectMap) Unregister(obj any) bool {
	if obj == nil || !isComparable(obj) {
		return false
	}
	tm, ok := m.types[reflect.TypeOf(obj)]
	if !ok {
		return false
	}
	key, ok := tm.byInstance[obj]
	if !ok {
		return false
	}
	delete(tm.byInstance, obj)
	delete(tm.byKey, key)
	return true
}

// Clear drops every registered instance. Managed types stay managed.
func (m *ObjectMap) Clear() {
	for _, tm := range m.types {
		clear(tm.byKey)
		clear(tm.byInstance)
	}
}

// Len returns the number of registered instances across all types.
func (m *ObjectMap) Len() int {
	n := 0
	for _, tm := range m.types {
		n += len(tm.byKey)
	}
	return n
}

// Accept pushes obj through the owning session so the session returns its
// canonical instance.
func (m *ObjectMap) Accept(ctx context.Context, s session.Session, obj any) (any, error) {
	key, err := s.KeyOf(obj)
	if err != nil {
		return nil, err
	}
	return s.GetObjectByKey(ctx, reflect.TypeOf(obj), key)
}

// Get is a typed Lookup for the managed type *T.
func Get[T any](m *ObjectMap, key any) (*T, bool) {
	obj, ok := m.Lookup(reflect.TypeFor[*T](), key)
	if !ok {
		return nil, false
	}
	typed, ok := obj.(*T)
	return typed, ok
}

func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
