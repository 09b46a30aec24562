/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// DefaultKeyProperty is used for types without an explicit key property.
const DefaultKeyProperty = "ID"

// Keyed is implemented by objects that compute their own logical key.
type Keyed interface {
	ObjectKey() any
}

var (
	keyProperties = make(map[reflect.Type]string)
	keyMu         sync.RWMutex
)

// RegisterKeyProperty names the struct field holding the logical key of t.
func RegisterKeyProperty(t reflect.Type, field string) {
	keyMu.Lock()
	defer keyMu.Unlock()
	keyProperties[t] = field
}

// KeyProperty returns the key field name for t.
func KeyProperty(t reflect.Type) string {
	keyMu.RLock()
	defer keyMu.RUnlock()
	if field, ok := keyProperties[t]; ok {
		return field
	}
	return DefaultKeyProperty
}

// KeyOf extracts the logical key of obj, either from Keyed or from the
// registered key property.
func KeyOf(obj any) (any, error) {
	if obj == nil {
		return nil, fmt.Errorf("key registry: nil object has no key")
	}
	if k, ok := obj.(Keyed); ok {
		return k.ObjectKey(), nil
	}

	t := reflect.TypeOf(obj)
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("key registry: nil %v has no key", t)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("key registry: %v is not a struct", t)
	}

	field := KeyProperty(t)
	fv := v.FieldByName(field)
	if !fv.IsValid() {
		return nil, fmt.Errorf("key registry: %v has no key field %q", t, field)
	}
	if !fv.CanInterface() {
		return nil, fmt.Errorf("key registry: key field %q of %v is unexported", field, t)
	}
	return fv.Interface(), nil
}
