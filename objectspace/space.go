/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectspace

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/logging"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/session"
	"github.com/suparena/transientspace/storagemodels"
)

type objectState int

const (
	stateUnchanged objectState = iota
	stateNew
	stateModified
	stateDeleted
)

func (s objectState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateModified:
		return "modified"
	case stateDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Space is an in-memory unit of work. It tracks the objects it owns, keeps
// its own identity map and raises session events to its listeners before
// applying default handling. Not safe for concurrent use.
type Space struct {
	id        uuid.UUID
	logger    *zap.Logger
	keyFunc   func(obj any) (any, error)
	listeners []session.Listener

	states   map[any]objectState
	order    []any
	identity map[reflect.Type]map[any]any
}

// Option configures a Space
type Option func(*Space)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Space) {
		s.logger = logging.OrNop(l)
	}
}

// WithKeyFunc overrides registry.KeyOf as the source of logical keys.
func WithKeyFunc(f func(obj any) (any, error)) Option {
	return func(s *Space) {
		s.keyFunc = f
	}
}

// New creates an empty Space
func New(opts ...Option) *Space {
	s := &Space{
		id:       uuid.New(),
		logger:   zap.NewNop(),
		keyFunc:  registry.KeyOf,
		states:   make(map[any]objectState),
		identity: make(map[reflect.Type]map[any]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("space", s.id.String()))
	return s
}

var _ session.Session = (*Space)(nil)

// ID identifies the space in logs.
func (s *Space) ID() uuid.UUID { return s.id }

// AddListener subscribes l to the space's events
func (s *Space) AddListener(l session.Listener) {
	s.listeners = append(s.listeners, l)
}

// KeyOf returns the logical key of obj
func (s *Space) KeyOf(obj any) (any, error) {
	return s.keyFunc(obj)
}

// IsNewObject reports whether obj was created here and not committed yet
func (s *Space) IsNewObject(obj any) bool {
	if !isComparable(obj) {
		return false
	}
	return s.states[obj] == stateNew && s.isTracked(obj)
}

// IsModified reports whether obj is marked modified
func (s *Space) IsModified(obj any) bool {
	if !isComparable(obj) {
		return false
	}
	return s.states[obj] == stateModified
}

// IsDeleted reports whether obj is marked for deletion
func (s *Space) IsDeleted(obj any) bool {
	if !isComparable(obj) {
		return false
	}
	return s.states[obj] == stateDeleted
}

// Contains reports whether the space owns obj
func (s *Space) Contains(obj any) bool {
	return isComparable(obj) && s.isTracked(obj)
}

// ObjectsToSave returns new and modified objects in tracking order. The space
// has no nested spaces, so includeRecursive does not change the result.
func (s *Space) ObjectsToSave(includeRecursive bool) []any {
	return s.collect(func(st objectState) bool { return st == stateNew || st == stateModified })
}

// ObjectsToDelete returns objects marked for deletion in tracking order
func (s *Space) ObjectsToDelete(includeRecursive bool) []any {
	return s.collect(func(st objectState) bool { return st == stateDeleted })
}

// FindOwningSession follows the object's link, then the space's own tracking.
func (s *Space) FindOwningSession(obj any) (session.Session, bool) {
	if l, ok := obj.(session.Link); ok && !isNilLink(l) {
		if owner := l.ObjectSpace(); owner != nil {
			return owner, true
		}
	}
	if s.Contains(obj) {
		return s, true
	}
	return nil, false
}

// CreateObject starts tracking obj as a new object
func (s *Space) CreateObject(obj any) error {
	if err := validateObject(obj); err != nil {
		return err
	}
	if s.isTracked(obj) {
		return errors.NewValidationError("object", "object already belongs to this space")
	}
	s.track(obj, stateNew)
	if key, err := s.keyFunc(obj); err == nil {
		s.index(reflect.TypeOf(obj), key, obj)
	}
	s.logger.Debug("object created", zap.String("type", registry.TypeName(reflect.TypeOf(obj))))
	return nil
}

// MarkModified flags a tracked object as changed. New objects stay new.
func (s *Space) MarkModified(obj any) error {
	st, ok := s.stateOf(obj)
	if !ok {
		return errors.NewValidationError("object", "object does not belong to this space")
	}
	switch st {
	case stateUnchanged:
		s.states[obj] = stateModified
	case stateDeleted:
		return errors.NewValidationError("object", "object is marked for deletion")
	}
	return nil
}

// Delete marks obj for deletion. A new object is simply forgotten.
func (s *Space) Delete(obj any) error {
	st, ok := s.stateOf(obj)
	if !ok {
		return errors.NewValidationError("object", "object does not belong to this space")
	}
	if st == stateNew {
		s.forget(obj)
		return nil
	}
	s.states[obj] = stateDeleted
	return nil
}

// GetObject returns this space's instance for obj, which may come from another space.
func (s *Space) GetObject(ctx context.Context, obj any) (any, error) {
	if obj == nil {
		return nil, nil
	}
	e := &session.ObjectGettingEvent{Source: obj}
	for _, l := range s.listeners {
		if err := l.ObjectGetting(ctx, e); err != nil {
			return nil, err
		}
		if e.Handled() {
			return s.adopt(e.Target()), nil
		}
	}

	if owner, ok := s.FindOwningSession(obj); ok && owner == session.Session(s) {
		return obj, nil
	}
	key, err := s.keyFunc(obj)
	if err != nil {
		return nil, err
	}
	return s.GetObjectByKey(ctx, reflect.TypeOf(obj), key)
}

// GetObjectByKey resolves (t, key) through the listeners, then through the
// space's own identity map. It returns nil, nil when nothing matches.
func (s *Space) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	e := &session.ObjectByKeyGettingEvent{Type: t, Key: key}
	for _, l := range s.listeners {
		if err := l.ObjectByKeyGetting(ctx, e); err != nil {
			return nil, err
		}
		if e.Object() != nil {
			return s.adopt(e.Object()), nil
		}
	}

	if !isComparable(key) {
		return nil, nil
	}
	obj, ok := s.identity[t][key]
	if !ok || s.IsDeleted(obj) {
		return nil, nil
	}
	return obj, nil
}

// Collection returns the collection of type t a listener supplies, or one
// over the space's own objects.
func (s *Space) Collection(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty, inTransaction bool) (*session.Collection, error) {
	e := &session.ObjectsGettingEvent{Type: t, Criteria: criteria, Sorting: sorting, InTransaction: inTransaction}
	for _, l := range s.listeners {
		if err := l.ObjectsGetting(ctx, e); err != nil {
			return nil, err
		}
		if e.Objects() != nil {
			return e.Objects(), nil
		}
	}
	return session.NewCollection(s, t, criteria, sorting, inTransaction, s.fetchOwn), nil
}

// GetObjects loads and materializes a collection. Shaped results are
// resolved one by one through GetObject.
func (s *Space) GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty, inTransaction bool) ([]any, error) {
	c, err := s.Collection(ctx, t, criteria, sorting, inTransaction)
	if err != nil {
		return nil, err
	}
	raw, shape, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !shape {
		return raw, nil
	}

	out := make([]any, 0, len(raw))
	for _, r := range raw {
		obj, err := s.GetObject(ctx, r)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// CommitChanges raises the commit event and, unless a listener handled it,
// marks every pending change as persisted. A listener error leaves all
// pending changes in place.
func (s *Space) CommitChanges(ctx context.Context) error {
	e := &session.CommitEvent{}
	for _, l := range s.listeners {
		if err := l.CommitChanges(ctx, e); err != nil {
			return err
		}
	}
	if e.Handled {
		return nil
	}

	for _, obj := range append([]any(nil), s.order...) {
		switch s.states[obj] {
		case stateNew, stateModified:
			s.states[obj] = stateUnchanged
			if key, err := s.keyFunc(obj); err == nil {
				s.index(reflect.TypeOf(obj), key, obj)
			}
		case stateDeleted:
			s.forget(obj)
		}
	}
	s.logger.Debug("changes committed")
	return nil
}

// Reload forgets every tracked object and raises the reloaded event.
func (s *Space) Reload(ctx context.Context) {
	for _, obj := range s.order {
		if l, ok := obj.(session.Link); ok && !isNilLink(l) && l.ObjectSpace() == session.Session(s) {
			l.SetObjectSpace(nil)
		}
	}
	s.states = make(map[any]objectState)
	s.order = nil
	s.identity = make(map[reflect.Type]map[any]any)

	for _, l := range s.listeners {
		l.Reloaded(ctx)
	}
	s.logger.Debug("space reloaded")
}

// ReloadObject returns the current instance for obj. A nil result means obj
// no longer exists and has been dropped from the space.
func (s *Space) ReloadObject(ctx context.Context, obj any) (any, error) {
	if obj == nil {
		return nil, nil
	}
	e := &session.ObjectGettingEvent{Source: obj}
	for _, l := range s.listeners {
		if err := l.ObjectReloading(ctx, e); err != nil {
			return nil, err
		}
		if e.Handled() {
			target := e.Target()
			if target != obj && s.Contains(obj) {
				s.forget(obj)
			}
			if target == nil {
				return nil, nil
			}
			return s.adopt(target), nil
		}
	}
	return obj, nil
}

// adopt makes obj part of the space as an unchanged object, unless it is tracked already.
func (s *Space) adopt(obj any) any {
	if obj == nil || !isComparable(obj) || s.isTracked(obj) {
		return obj
	}
	s.track(obj, stateUnchanged)
	if key, err := s.keyFunc(obj); err == nil {
		s.index(reflect.TypeOf(obj), key, obj)
	}
	return obj
}

func (s *Space) fetchOwn(ctx context.Context, req *session.FetchRequest) error {
	var filter storagemodels.Filter
	switch c := req.Criteria.(type) {
	case nil:
	case storagemodels.Filter:
		filter = c
	case func(any) bool:
		filter = c
	default:
		return errors.NewValidationError("criteria", fmt.Sprintf("unsupported criteria %T", req.Criteria))
	}

	objs := s.collect(func(st objectState) bool { return st != stateDeleted })
	own := make([]any, 0, len(objs))
	for _, obj := range objs {
		if reflect.TypeOf(obj) == req.Type {
			own = append(own, obj)
		}
	}
	own = filter.Apply(own)
	if err := storagemodels.SortObjects(own, req.Sorting); err != nil {
		return errors.NewValidationError("sorting", err.Error())
	}
	req.Objects = own
	return nil
}

func (s *Space) track(obj any, st objectState) {
	s.states[obj] = st
	s.order = append(s.order, obj)
	if l, ok := obj.(session.Link); ok && !isNilLink(l) {
		l.SetObjectSpace(s)
	}
}

func (s *Space) forget(obj any) {
	delete(s.states, obj)
	for i, o := range s.order {
		if o == obj {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	t := reflect.TypeOf(obj)
	for k, v := range s.identity[t] {
		if v == obj {
			delete(s.identity[t], k)
		}
	}
	if l, ok := obj.(session.Link); ok && !isNilLink(l) && l.ObjectSpace() == session.Session(s) {
		l.SetObjectSpace(nil)
	}
}

// index maps key to obj, dropping any older key obj was indexed under.
func (s *Space) index(t reflect.Type, key, obj any) {
	if !isComparable(key) {
		return
	}
	if s.identity[t] == nil {
		s.identity[t] = make(map[any]any)
	}
	for k, v := range s.identity[t] {
		if v == obj && k != key {
			delete(s.identity[t], k)
		}
	}
	s.identity[t][key] = obj
}

func (s *Space) isTracked(obj any) bool {
	_, ok := s.states[obj]
	return ok
}

func (s *Space) stateOf(obj any) (objectState, bool) {
	if !isComparable(obj) {
		return 0, false
	}
	st, ok := s.states[obj]
	return st, ok
}

func (s *Space) collect(match func(objectState) bool) []any {
	var out []any
	for _, obj := range s.order {
		if match(s.states[obj]) {
			out = append(out, obj)
		}
	}
	return out
}

func validateObject(obj any) error {
	if obj == nil {
		return errors.NewValidationError("object", "object is nil")
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.NewValidationError("object", fmt.Sprintf("%T is not a non-nil pointer", obj))
	}
	return nil
}

func isComparable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

func isNilLink(l session.Link) bool {
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
