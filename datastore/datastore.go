/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"reflect"

	"github.com/suparena/transientspace/storagemodels"
)

// Storage is the non-persistent backing store behind managed types.
// Every read returns instances the caller owns; identity is the caller's concern.
type Storage interface {
	// GetObjectByKey returns the object of type t with the given key, or nil, nil when absent.
	GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error)

	// GetObjects returns the objects of type t matching criteria, ordered by sorting.
	// Criteria is backend-specific; nil selects every object of the type.
	GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty) ([]any, error)

	// SaveObjects applies one batch of inserts, updates and deletes.
	SaveObjects(ctx context.Context, toInsert, toUpdate, toDelete []any) error
}
