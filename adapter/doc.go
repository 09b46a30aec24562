/*
Package adapter lets a session serve selected object types from a
non-persistent Storage while keeping identity-map semantics.

A TransientAdapter listens to one session:

	objects := objectmap.New(reflect.TypeFor[*Customer]())
	adapter.New(space, objects, storage, adapter.WithLogger(logger))

	a, _ := space.GetObjectByKey(ctx, customerType, 1) // storage read, registered
	b, _ := space.GetObjectByKey(ctx, customerType, 1) // same instance, no read
	space.Reload(ctx)                                  // identity map cleared

It answers the session's events as follows:
  - ObjectGetting: canonical objects of the session are kept, foreign or
    stale ones are replaced by the instance resolved for their key.
  - ObjectByKeyGetting: identity map first, then storage; storage results are
    registered.
  - ObjectsGetting: a lazy collection that queries storage each time it is loaded.
  - ObjectReloading: new objects reload to nil, others to their canonical instance.
  - Reloaded: the identity map is cleared.
  - CommitChanges: pending inserts, updates and deletes go to storage in one
    batch, and only when there is something to save.

Storage errors are returned unchanged. Requests for unmanaged types are never
altered.
*/
package adapter
