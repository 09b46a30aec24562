/*
Package registry manages type registration, logical keys and index mapping
for transientspace.

The registry system enables:
  - Polymorphic object storage in a single DynamoDB table
  - Dynamic type resolution based on EntityType attributes
  - Logical key extraction for identity maps
  - Flexible key patterns through index maps

Type Registry:
Maps entity type names to pointer-to-struct Go types:

	registry.RegisterTypeFor[Customer]("Customer")

Key Properties:
Names the field holding an object's logical key (default "ID"):

	registry.RegisterKeyProperty(reflect.TypeFor[*Order](), "Number")
	key, err := registry.KeyOf(order)

Index Map Registry:
Associates Go types with DynamoDB key patterns:

	registry.RegisterIndexMapFor[Customer](map[string]string{
	    "PK":     "CUSTOMER#{ID}",
	    "SK":     "CUSTOMER#{ID}",
	    "GSI1PK": "REGION#{Region}",
	    "GSI1SK": "CUSTOMER#{Name}",
	})

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
