/*
Package processor turns storage annotations in OpenAPI documents into
registry registrations.

The processor looks for the x-dynamodb-indexmap vendor extension and the
optional x-transient-key extension naming the key property:

	components:
	  schemas:
	    Product:
	      type: object
	      x-transient-key: SKU
	      x-dynamodb-indexmap:
	        PK: "PRODUCT#{SKU}"
	        SK: "PRODUCT#{SKU}"

Register applies the annotations at runtime to types registered by name.
Generate emits the equivalent init code:

	func init() {
	    registry.RegisterTypeFor[Product]("Product")
	    registry.RegisterIndexMapFor[Product](map[string]string{
	        "PK": "PRODUCT#{SKU}",
	        "SK": "PRODUCT#{SKU}",
	    })
	    registry.RegisterKeyProperty(reflect.TypeFor[*Product](), "SKU")
	}
*/
package processor
