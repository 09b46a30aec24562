/*
Package datastore defines the storage collaborator of transientspace.

The main interface is Storage, which serves objects of any managed type:

	type Storage interface {
	    GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error)
	    GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty) ([]any, error)
	    SaveObjects(ctx context.Context, toInsert, toUpdate, toDelete []any) error
	}

Implementations:
  - ddb: DynamoDB implementation with support for single-table design
  - mock: In-memory transient implementation for testing and demos

Absent objects are reported as nil results, not errors. Any error a Storage
returns is passed through the adapter unchanged.
*/
package datastore
