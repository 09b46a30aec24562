/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// typeRegistry holds the mapping from an entity type name (like "Customer") to its Go type.
var (
	typesByName = make(map[string]reflect.Type)
	namesByType = make(map[reflect.Type]string)
	typeMu      sync.RWMutex
)

// RegisterType registers a pointer-to-struct type under a given entity type name.
// Registering the same pair twice is a no-op; registering a name for a different
// type panics to prevent accidental overrides.
func RegisterType(name string, t reflect.Type) {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("type registry: %v is not a pointer to struct", t))
	}

	typeMu.Lock()
	defer typeMu.Unlock()
	if existing, exists := typesByName[name]; exists {
		if existing == t {
			return
		}
		panic(fmt.Sprintf("type registry: type with name %q already registered", name))
	}
	typesByName[name] = t
	namesByType[t] = name
}

// RegisterTypeFor registers *T under the given name.
func RegisterTypeFor[T any](name string) reflect.Type {
	t := reflect.TypeFor[*T]()
	RegisterType(name, t)
	return t
}

// TypeByName returns the registered type for the given entity type name.
func TypeByName(name string) (reflect.Type, error) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	t, ok := typesByName[name]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered for name %q", name)
	}
	return t, nil
}

// TypeName returns the registered entity type name for t, or t.String() when
// the type was never registered.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	typeMu.RLock()
	defer typeMu.RUnlock()
	if name, ok := namesByType[t]; ok {
		return name
	}
	return t.String()
}

// New allocates a zero object of the pointer type t.
func New(t reflect.Type) (any, error) {
	if t == nil || t.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("type registry: cannot allocate %v", t)
	}
	return reflect.New(t.Elem()).Interface(), nil
}
