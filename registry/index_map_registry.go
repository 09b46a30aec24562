/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// IndexMapRegistry is a registry for Go types and their DynamoDB index maps.

var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	mu               sync.RWMutex
)

// RegisterIndexMap associates a Go type with a given DynamoDB index map (PK, SK, etc.).
func RegisterIndexMap(t reflect.Type, idxMap map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[t] = idxMap
}

// RegisterIndexMapFor associates *T with the given index map.
func RegisterIndexMapFor[T any](idxMap map[string]string) {
	RegisterIndexMap(reflect.TypeFor[*T](), idxMap)
}

// GetIndexMap retrieves the index map for type t, if any.
func GetIndexMap(t reflect.Type) (map[string]string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[t]
	return m, ok
}
