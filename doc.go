/*
Package transientspace serves selected object types of an in-memory object
space from a non-persistent store while keeping identity-map semantics: one
logical key yields one in-memory instance per session.

The session raises events when it resolves an object, a key, a collection or
a reload, and when it commits. A TransientAdapter subscribes to those events
for its managed types, answers them from its ObjectMap or from a
datastore.Storage, and forwards pending changes to the storage on commit.
Events for other types are left to the session.

Basic Usage:

	storage := mock.New()
	s := transientspace.Open(storage, []reflect.Type{testmodels.CustomerType})

	a, _ := s.GetObjectByKey(ctx, testmodels.CustomerType, 1) // storage read
	b, _ := s.GetObjectByKey(ctx, testmodels.CustomerType, 1) // cache hit, a == b
	s.Reload(ctx)
	c, _ := s.GetObjectByKey(ctx, testmodels.CustomerType, 1) // fresh instance, c != a

Storage backends:
  - datastore/mock: in-memory, returns a copy on every read
  - datastore/ddb: DynamoDB single-table design
  - RoutingStorage: serves each type from its own backend
*/
package transientspace
