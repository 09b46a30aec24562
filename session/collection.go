/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package session

import (
	"context"
	"reflect"

	"github.com/suparena/transientspace/storagemodels"
)

// FetchRequest is passed to a collection's fetch callback. The callback
// fills Objects and sets ShapeData when the session must materialize each
// raw object itself.
type FetchRequest struct {
	Type     reflect.Type
	Criteria any
	Sorting  []storagemodels.SortProperty

	Objects   []any
	ShapeData bool
}

// FetchFunc loads the raw contents of a collection.
type FetchFunc func(ctx context.Context, req *FetchRequest) error

// Collection is a lazily loaded sequence of objects. Nothing is fetched
// until Load or Each is called, and every call fetches again.
type Collection struct {
	session       Session
	objectType    reflect.Type
	criteria      any
	sorting       []storagemodels.SortProperty
	inTransaction bool
	fetch         FetchFunc
}

// NewCollection creates a collection over objects of type t.
func NewCollection(s Session, t reflect.Type, criteria any, sorting []storagemodels.SortProperty, inTransaction bool, fetch FetchFunc) *Collection {
	return &Collection{
		session:       s,
		objectType:    t,
		criteria:      criteria,
		sorting:       sorting,
		inTransaction: inTransaction,
		fetch:         fetch,
	}
}

func (c *Collection) Session() Session { return c.session }

func (c *Collection) Type() reflect.Type { return c.objectType }

func (c *Collection) Criteria() any { return c.criteria }

func (c *Collection) Sorting() []storagemodels.SortProperty { return c.sorting }

func (c *Collection) InTransaction() bool { return c.inTransaction }

// Load runs the fetch callback and returns the raw objects and whether they
// need shaping by the session.
func (c *Collection) Load(ctx context.Context) ([]any, bool, error) {
	if c.fetch == nil {
		return nil, false, nil
	}
	req := &FetchRequest{
		Type:     c.objectType,
		Criteria: c.criteria,
		Sorting:  c.sorting,
	}
	if err := c.fetch(ctx, req); err != nil {
		return nil, false, err
	}
	return req.Objects, req.ShapeData, nil
}

// Each loads the collection and calls fn for every raw object until fn
// returns false.
func (c *Collection) Each(ctx context.Context, fn func(obj any) bool) error {
	objs, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if !fn(obj) {
			break
		}
	}
	return nil
}
