/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"sort"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/suparena/transientspace/registry"
)

// Vendor extensions read from schema objects
const (
	IndexMapExtension    = "x-dynamodb-indexmap"
	KeyPropertyExtension = "x-transient-key"
)

// Schema is a schema object carrying storage annotations.
type Schema struct {
	Name        string
	IndexMap    map[string]string
	KeyProperty string
}

type document struct {
	Components struct {
		Schemas map[string]schemaNode `yaml:"schemas"`
	} `yaml:"components"`
	// Swagger 2.0 documents keep schemas under definitions.
	Definitions map[string]schemaNode `yaml:"definitions"`
}

type schemaNode struct {
	IndexMap    map[string]string `yaml:"x-dynamodb-indexmap"`
	KeyProperty string            `yaml:"x-transient-key"`
}

// Parse reads an OpenAPI 3 or Swagger 2 document and returns the annotated
// schemas ordered by name. Schemas without an index map are skipped.
func Parse(data []byte) ([]Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	nodes := doc.Components.Schemas
	if len(nodes) == 0 {
		nodes = doc.Definitions
	}

	schemas := make([]Schema, 0, len(nodes))
	for name, node := range nodes {
		if len(node.IndexMap) == 0 {
			continue
		}
		if _, ok := node.IndexMap["PK"]; !ok {
			return nil, fmt.Errorf("schema %s: %s has no PK", name, IndexMapExtension)
		}
		schemas = append(schemas, Schema{Name: name, IndexMap: node.IndexMap, KeyProperty: node.KeyProperty})
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas, nil
}

// Register applies the schemas to types already registered under their names.
func Register(schemas []Schema) error {
	for _, s := range schemas {
		t, err := registry.TypeByName(s.Name)
		if err != nil {
			return err
		}
		registry.RegisterIndexMap(t, s.IndexMap)
		if s.KeyProperty != "" {
			registry.RegisterKeyProperty(t, s.KeyProperty)
		}
	}
	return nil
}

var sourceTemplate = template.Must(template.New("registrations").Parse(`// Code generated by indexmap; DO NOT EDIT.

package {{.Package}}

import (
{{- if .NeedsReflect}}
	"reflect"
{{end}}
	"github.com/suparena/transientspace/registry"
)

func init() {
{{- range .Schemas}}
	registry.RegisterTypeFor[{{.Name}}]({{printf "%q" .Name}})
	registry.RegisterIndexMapFor[{{.Name}}](map[string]string{
{{- range $k, $v := .IndexMap}}
		{{printf "%q" $k}}: {{printf "%q" $v}},
{{- end}}
	})
{{- if .KeyProperty}}
	registry.RegisterKeyProperty(reflect.TypeFor[*{{.Name}}](), {{printf "%q" .KeyProperty}})
{{- end}}
{{end -}}
}
`))

// Generate writes gofmt'ed Go source registering the schemas in package pkg.
func Generate(w io.Writer, pkg string, schemas []Schema) error {
	needsReflect := false
	for _, s := range schemas {
		if s.KeyProperty != "" {
			needsReflect = true
		}
	}

	var buf bytes.Buffer
	err := sourceTemplate.Execute(&buf, struct {
		Package      string
		NeedsReflect bool
		Schemas      []Schema
	}{pkg, needsReflect, schemas})
	if err != nil {
		return fmt.Errorf("render source: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format source: %w", err)
	}
	_, err = w.Write(src)
	return err
}
