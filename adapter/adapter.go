/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package adapter

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/suparena/transientspace/datastore"
	"github.com/suparena/transientspace/logging"
	"github.com/suparena/transientspace/metrics"
	"github.com/suparena/transientspace/objectmap"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/session"
)

// TransientAdapter serves the managed types of one session from a Storage,
// keeping one instance per key through an ObjectMap. Requests for other
// types are left to the session.
type TransientAdapter struct {
	space   session.Session
	objects *objectmap.ObjectMap
	storage datastore.Storage
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a TransientAdapter
type Option func(*TransientAdapter)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *TransientAdapter) {
		a.logger = logging.OrNop(l)
	}
}

// WithMetrics records cache and storage traffic on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *TransientAdapter) {
		a.metrics = c
	}
}

// New creates an adapter and subscribes it to space. objects must be
// exclusive to this adapter and live exactly as long as space.
func New(space session.Session, objects *objectmap.ObjectMap, storage datastore.Storage, opts ...Option) *TransientAdapter {
	a := &TransientAdapter{
		space:   space,
		objects: objects,
		storage: storage,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	space.AddListener(a)
	return a
}

// Objects returns the adapter's identity map.
func (a *TransientAdapter) Objects() *objectmap.ObjectMap {
	return a.objects
}

var _ session.Listener = (*TransientAdapter)(nil)

// ObjectGetting keeps objects of this session that are already canonical
// (registered or new) and replaces anything else with the instance the
// session resolves for its key.
func (a *TransientAdapter) ObjectGetting(ctx context.Context, e *session.ObjectGettingEvent) error {
	if e.Source == nil || !a.objects.IsManaged(reflect.TypeOf(e.Source)) {
		return nil
	}

	owner, owned := a.space.FindOwningSession(e.Source)
	if owned && owner == a.space && (a.objects.Contains(e.Source) || a.isNewObject(e.Source)) {
		e.SetTarget(e.Source)
		return nil
	}

	target, err := a.objects.Accept(ctx, a.space, e.Source)
	if err != nil {
		return err
	}
	e.SetTarget(target)
	return nil
}

// ObjectByKeyGetting answers key lookups of managed types from the identity
// map, falling back to storage and registering what storage returns.
func (a *TransientAdapter) ObjectByKeyGetting(ctx context.Context, e *session.ObjectByKeyGettingEvent) error {
	if e.Key == nil || !a.objects.IsManaged(e.Type) {
		return nil
	}
	obj, err := a.resolveByKey(ctx, e.Type, e.Key)
	if err != nil {
		return err
	}
	if obj != nil {
		e.SetObject(obj)
	}
	return nil
}

// ObjectsGetting supplies a lazy collection backed by storage. The raw
// objects are shaped by the session, each one coming back through
// ObjectGetting.
func (a *TransientAdapter) ObjectsGetting(ctx context.Context, e *session.ObjectsGettingEvent) error {
	if !a.objects.IsManaged(e.Type) {
		return nil
	}
	e.SetObjects(session.NewCollection(a.space, e.Type, e.Criteria, e.Sorting, e.InTransaction, a.fetchObjects))
	return nil
}

// ObjectReloading points a reloaded object at its canonical instance. New
// objects have nothing to reload and get a nil target.
func (a *TransientAdapter) ObjectReloading(ctx context.Context, e *session.ObjectGettingEvent) error {
	if e.Source == nil || !a.objects.IsManaged(reflect.TypeOf(e.Source)) {
		return nil
	}
	if a.isNewObject(e.Source) {
		e.SetTarget(nil)
		return nil
	}

	key, err := a.space.KeyOf(e.Source)
	if err != nil {
		return err
	}
	target, err := a.resolveByKey(ctx, reflect.TypeOf(e.Source), key)
	if err != nil {
		return err
	}
	e.SetTarget(target)
	return nil
}

// Reloaded drops every cached instance.
func (a *TransientAdapter) Reloaded(ctx context.Context) {
	a.objects.Clear()
	a.metrics.Cleared()
	a.logger.Debug("identity map cleared")
}

// CommitChanges forwards pending changes to storage in a single batch. It
// leaves e.Handled alone so the session completes its own commit. Once the
// batch is saved, deleted objects leave the identity map and inserted ones
// become canonical for their keys.
func (a *TransientAdapter) CommitChanges(ctx context.Context, e *session.CommitEvent) error {
	var toInsert, toUpdate []any
	for _, obj := range a.space.ObjectsToSave(false) {
		if a.space.IsNewObject(obj) {
			toInsert = append(toInsert, obj)
		} else {
			toUpdate = append(toUpdate, obj)
		}
	}
	toDelete := a.space.ObjectsToDelete(false)

	if len(toInsert) == 0 && len(toUpdate) == 0 && len(toDelete) == 0 {
		return nil
	}

	err := a.storage.SaveObjects(ctx, toInsert, toUpdate, toDelete)
	a.metrics.StorageCall(metrics.OpSave, err)
	if err != nil {
		return err
	}
	a.metrics.SaveBatch(len(toInsert), len(toUpdate), len(toDelete))
	a.logger.Debug("changes saved",
		zap.Int("inserted", len(toInsert)),
		zap.Int("updated", len(toUpdate)),
		zap.Int("deleted", len(toDelete)))

	for _, obj := range toDelete {
		if a.objects.Unregister(obj) {
			a.logger.Debug("deleted object evicted", zap.String("type", registry.TypeName(reflect.TypeOf(obj))))
		}
	}
	a.adoptInserted(toInsert)
	return nil
}

// adoptInserted makes committed new objects the canonical instances of their
// keys. The batch is already saved, so failures are logged and skipped.
func (a *TransientAdapter) adoptInserted(inserted []any) {
	for _, obj := range inserted {
		t := reflect.TypeOf(obj)
		if !a.objects.IsManaged(t) || a.objects.Contains(obj) {
			continue
		}
		name := registry.TypeName(t)
		key, err := a.space.KeyOf(obj)
		if err != nil {
			a.logger.Warn("inserted object not adopted", zap.String("type", name), zap.Error(err))
			continue
		}
		if _, cached := a.objects.Lookup(t, key); cached {
			continue
		}
		if err := a.objects.Register(t, key, obj); err != nil {
			a.logger.Warn("inserted object not adopted", zap.String("type", name), zap.Any("key", key), zap.Error(err))
			continue
		}
		a.metrics.Registered(name)
	}
}

func (a *TransientAdapter) resolveByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	name := registry.TypeName(t)
	if obj, ok := a.objects.Lookup(t, key); ok {
		a.metrics.Hit(name)
		a.logger.Debug("object resolved", zap.String("type", name), zap.Any("key", key), zap.Bool("hit", true))
		return obj, nil
	}
	a.metrics.Miss(name)

	obj, err := a.storage.GetObjectByKey(ctx, t, key)
	a.metrics.StorageCall(metrics.OpGet, err)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("object resolved", zap.String("type", name), zap.Any("key", key), zap.Bool("hit", false), zap.Bool("found", obj != nil))
	if obj == nil {
		return nil, nil
	}

	// Storage may hand back the instance another path registered in the
	// meantime. Only a different instance under the key is fatal.
	if a.objects.Contains(obj) {
		return obj, nil
	}
	if err := a.objects.Register(t, key, obj); err != nil {
		a.logger.Error("identity map invariant violated", zap.String("type", name), zap.Any("key", key), zap.Error(err))
		return nil, err
	}
	a.metrics.Registered(name)
	return obj, nil
}

func (a *TransientAdapter) fetchObjects(ctx context.Context, req *session.FetchRequest) error {
	objs, err := a.storage.GetObjects(ctx, req.Type, req.Criteria, req.Sorting)
	a.metrics.StorageCall(metrics.OpQuery, err)
	if err != nil {
		return err
	}
	req.Objects = objs
	req.ShapeData = true
	return nil
}

// isNewObject asks the session owning obj, which need not be this one.
func (a *TransientAdapter) isNewObject(obj any) bool {
	owner, ok := a.space.FindOwningSession(obj)
	if !ok || owner == nil {
		return false
	}
	return owner.IsNewObject(obj)
}
