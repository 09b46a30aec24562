/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package session

import (
	"context"
	"reflect"
)

// Session is the host object space: a unit of work that owns the
// authoritative identity map for every type, tracks changes and raises
// retrieval, reload and commit events to its listeners.
type Session interface {
	// AddListener subscribes l to the session's events.
	AddListener(l Listener)

	// KeyOf returns the logical key of obj.
	KeyOf(obj any) (any, error)

	// IsNewObject reports whether obj was created in this session and not committed yet.
	IsNewObject(obj any) bool

	// ObjectsToSave returns new and modified objects pending commit.
	ObjectsToSave(includeRecursive bool) []any

	// ObjectsToDelete returns persisted objects marked for deletion.
	ObjectsToDelete(includeRecursive bool) []any

	// FindOwningSession returns the session obj belongs to, if any.
	FindOwningSession(obj any) (Session, bool)

	// GetObjectByKey resolves the canonical instance of (t, key) in this
	// session. It returns nil, nil when nothing matches.
	GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error)
}

// Link is implemented by objects that know their owning session.
type Link interface {
	ObjectSpace() Session
	SetObjectSpace(s Session)
}

// LinkBase is an embeddable implementation of Link.
type LinkBase struct {
	space Session
}

func (l *LinkBase) ObjectSpace() Session { return l.space }

func (l *LinkBase) SetObjectSpace(s Session) { l.space = s }
