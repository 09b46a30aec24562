/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package session

import (
	"context"
	"reflect"

	"github.com/suparena/transientspace/storagemodels"
)

// Listener receives the events a Session raises. Each method may leave the
// event untouched, in which case the session applies its default handling.
// A returned error aborts the session operation that raised the event.
type Listener interface {
	ObjectGetting(ctx context.Context, e *ObjectGettingEvent) error
	ObjectByKeyGetting(ctx context.Context, e *ObjectByKeyGettingEvent) error
	ObjectsGetting(ctx context.Context, e *ObjectsGettingEvent) error
	ObjectReloading(ctx context.Context, e *ObjectGettingEvent) error
	Reloaded(ctx context.Context)
	CommitChanges(ctx context.Context, e *CommitEvent) error
}

// BaseListener implements Listener with no-ops. Embed it to handle a subset of events.
type BaseListener struct{}

func (BaseListener) ObjectGetting(context.Context, *ObjectGettingEvent) error { return nil }

func (BaseListener) ObjectByKeyGetting(context.Context, *ObjectByKeyGettingEvent) error { return nil }

func (BaseListener) ObjectsGetting(context.Context, *ObjectsGettingEvent) error { return nil }

func (BaseListener) ObjectReloading(context.Context, *ObjectGettingEvent) error { return nil }

func (BaseListener) Reloaded(context.Context) {}

func (BaseListener) CommitChanges(context.Context, *CommitEvent) error { return nil }

// ObjectGettingEvent is raised when the session is asked for its own copy
// of Source, and when Source is reloaded.
type ObjectGettingEvent struct {
	Source any

	target  any
	handled bool
}

// SetTarget substitutes the object the session returns. A nil target is a
// valid answer and differs from leaving the event unhandled.
func (e *ObjectGettingEvent) SetTarget(obj any) {
	e.target = obj
	e.handled = true
}

// Target returns the substituted object.
func (e *ObjectGettingEvent) Target() any { return e.target }

// Handled reports whether a listener called SetTarget.
func (e *ObjectGettingEvent) Handled() bool { return e.handled }

// ObjectByKeyGettingEvent is raised when the session resolves an object by key.
type ObjectByKeyGettingEvent struct {
	Type reflect.Type
	Key  any

	object any
}

// SetObject supplies the object for the requested key.
func (e *ObjectByKeyGettingEvent) SetObject(obj any) { e.object = obj }

// Object returns the supplied object, nil if none.
func (e *ObjectByKeyGettingEvent) Object() any { return e.object }

// ObjectsGettingEvent is raised when the session opens a collection of Type.
// Criteria is opaque to the session and is interpreted by storage only.
type ObjectsGettingEvent struct {
	Type          reflect.Type
	Criteria      any
	Sorting       []storagemodels.SortProperty
	InTransaction bool

	objects *Collection
}

// SetObjects supplies the collection the session materializes.
func (e *ObjectsGettingEvent) SetObjects(c *Collection) { e.objects = c }

// Objects returns the supplied collection, nil if none.
func (e *ObjectsGettingEvent) Objects() *Collection { return e.objects }

// CommitEvent is raised before the session applies its own commit handling.
// Setting Handled skips the session's default processing.
type CommitEvent struct {
	Handled bool
}
