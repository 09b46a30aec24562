/*
Package ddb provides a DynamoDB implementation of datastore.Storage.

The Store supports:
  - Single-table design patterns
  - Macro-based key expansion (e.g., "CUSTOMER#{ID}")
  - Global Secondary Index (GSI) queries built with IndexQuery
  - Paged reads with retry logic
  - Transactional saves with existence conditions
  - Automatic EntityType injection for polymorphic storage

Macro Expansion:
Keys use macros that are replaced with object field values:

	registry.RegisterIndexMap(customerType, map[string]string{
	    "PK":     "CUSTOMER#{ID}",     // Becomes "CUSTOMER#42"
	    "SK":     "CUSTOMER#{ID}",
	    "GSI1PK": "REGION#{Region}",   // Stored as PK1
	    "GSI1SK": "CUSTOMER#{Name}",   // Stored as SK1
	})

Criteria:
GetObjects accepts nil (scan the entity type), a storagemodels.Filter, or
query parameters:

	params, _ := ddb.NewIndexQuery(customerType).
	    WithPartitionKey("EMEA").
	    WithSortKeyPrefix("CUSTOMER#A").
	    Build()
	objs, err := store.GetObjects(ctx, customerType, params, nil)

Streaming:
Stream delivers query results on a channel:

	results := store.Stream(ctx, customerType, params,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        logger.Info("progress", zap.Int64("items", p.ItemsProcessed))
	    }),
	)
*/
package ddb
