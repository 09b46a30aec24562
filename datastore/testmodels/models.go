// Package testmodels holds the domain types used by tests and the demo CLI.
package testmodels

import (
	"reflect"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/session"
)

// Customer is served from transient storage.
type Customer struct {
	session.LinkBase `json:"-" dynamodbav:"-"`

	// Unique identifier of the customer.
	// Required: true
	ID int `json:"Id"`

	// Display name.
	// Required: true
	Name string `json:"Name"`

	// Sales region, used as GSI partition.
	Region string `json:"Region,omitempty"`

	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"CreatedAt,omitempty" dynamodbav:",omitempty"`
}

// Product is served from transient storage and keyed by SKU.
type Product struct {
	session.LinkBase `json:"-" dynamodbav:"-"`

	SKU   string  `json:"Sku"`
	Name  string  `json:"Name"`
	Price float64 `json:"Price"`
}

// Invoice is never managed; it lives in the host object space only.
type Invoice struct {
	session.LinkBase `json:"-" dynamodbav:"-"`

	ID     string  `json:"Id"`
	Amount float64 `json:"Amount"`
}

var (
	CustomerType = reflect.TypeFor[*Customer]()
	ProductType  = reflect.TypeFor[*Product]()
	InvoiceType  = reflect.TypeFor[*Invoice]()
)

func init() {
	registry.RegisterType("Customer", CustomerType)
	registry.RegisterType("Product", ProductType)
	registry.RegisterType("Invoice", InvoiceType)

	registry.RegisterKeyProperty(ProductType, "SKU")

	registry.RegisterIndexMap(CustomerType, map[string]string{
		"PK":     "CUSTOMER#{ID}",
		"SK":     "CUSTOMER#{ID}",
		"GSI1PK": "REGION#{Region}",
		"GSI1SK": "CUSTOMER#{Name}",
	})
	registry.RegisterIndexMap(ProductType, map[string]string{
		"PK": "PRODUCT#{SKU}",
		"SK": "PRODUCT#{SKU}",
	})
}
