/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/suparena/transientspace/registry"
)

const openAPIDoc = `
openapi: 3.0.3
components:
  schemas:
    Widget:
      type: object
      x-transient-key: Code
      x-dynamodb-indexmap:
        PK: "WIDGET#{Code}"
        SK: "WIDGET#{Code}"
        GSI1PK: "COLOR#{Color}"
    Plain:
      type: object
`

type Widget struct {
	Code  string
	Color string
}

func TestParse(t *testing.T) {
	schemas, err := Parse([]byte(openAPIDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(schemas) != 1 {
		t.Fatalf("Expected 1 annotated schema, got %d", len(schemas))
	}
	s := schemas[0]
	if s.Name != "Widget" || s.KeyProperty != "Code" {
		t.Errorf("Unexpected schema: %+v", s)
	}
	if s.IndexMap["GSI1PK"] != "COLOR#{Color}" {
		t.Errorf("Unexpected index map: %v", s.IndexMap)
	}
}

func TestParseSwagger(t *testing.T) {
	doc := `
swagger: "2.0"
definitions:
  Player:
    x-dynamodb-indexmap:
      PK: "PLAYER#{ID}"
      SK: "PLAYER#{ID}"
`
	schemas, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(schemas) != 1 || schemas[0].Name != "Player" {
		t.Errorf("Unexpected schemas: %+v", schemas)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("components: [")); err == nil {
		t.Error("Expected error for invalid YAML")
	}

	noPK := `
components:
  schemas:
    Broken:
      x-dynamodb-indexmap:
        SK: "X"
`
	if _, err := Parse([]byte(noPK)); err == nil {
		t.Error("Expected error for an index map without PK")
	}
}

func TestRegister(t *testing.T) {
	widgetType := registry.RegisterTypeFor[Widget]("Widget")

	schemas, err := Parse([]byte(openAPIDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := Register(schemas); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	indexMap, ok := registry.GetIndexMap(widgetType)
	if !ok || indexMap["PK"] != "WIDGET#{Code}" {
		t.Errorf("Index map not registered: %v", indexMap)
	}
	if got := registry.KeyProperty(widgetType); got != "Code" {
		t.Errorf("Expected key property Code, got %q", got)
	}

	if err := Register([]Schema{{Name: "Unknown", IndexMap: map[string]string{"PK": "X"}}}); err == nil {
		t.Error("Expected error for an unregistered type name")
	}
}

func TestGenerate(t *testing.T) {
	schemas := []Schema{{
		Name:        "Widget",
		KeyProperty: "Code",
		IndexMap:    map[string]string{"SK": "WIDGET#{Code}", "PK": "WIDGET#{Code}"},
	}}

	var buf bytes.Buffer
	if err := Generate(&buf, "models", schemas); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	src := buf.String()

	for _, want := range []string{
		"// Code generated by indexmap; DO NOT EDIT.",
		"package models",
		`"reflect"`,
		`registry.RegisterTypeFor[Widget]("Widget")`,
		`"PK": "WIDGET#{Code}",`,
		`registry.RegisterKeyProperty(reflect.TypeFor[*Widget](), "Code")`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Generated source missing %q:\n%s", want, src)
		}
	}
	if strings.Index(src, `"PK"`) > strings.Index(src, `"SK"`) {
		t.Error("Index map entries should be sorted")
	}
}

func TestGenerateWithoutKeyProperty(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(&buf, "models", []Schema{{Name: "Plain", IndexMap: map[string]string{"PK": "P#{ID}"}}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.Contains(buf.String(), `"reflect"`) {
		t.Error("reflect should only be imported when a key property is set")
	}
}
