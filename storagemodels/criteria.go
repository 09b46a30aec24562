/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// SortProperty orders a collection by one exported property.
type SortProperty struct {
	Property   string
	Descending bool
}

// Ascending sorts by property in ascending order.
func Ascending(property string) SortProperty {
	return SortProperty{Property: property}
}

// Descending sorts by property in descending order.
func Descending(property string) SortProperty {
	return SortProperty{Property: property, Descending: true}
}

// Filter is an in-memory predicate understood by the mock and DynamoDB stores.
type Filter func(obj any) bool

// Equals matches objects whose property equals value.
func Equals(property string, value any) Filter {
	return func(obj any) bool {
		fv, ok := fieldValue(obj, property)
		if !ok || !fv.CanInterface() {
			return false
		}
		return reflect.DeepEqual(fv.Interface(), value)
	}
}

// Apply returns the objects matching the filter, in order. A nil filter keeps all objects.
func (f Filter) Apply(objs []any) []any {
	if f == nil {
		return objs
	}
	out := make([]any, 0, len(objs))
	for _, obj := range objs {
		if f(obj) {
			out = append(out, obj)
		}
	}
	return out
}

var timeType = reflect.TypeOf(time.Time{})

// SortObjects stably sorts objs by the given properties. Objects lacking a
// property sort first.
func SortObjects(objs []any, sorting []SortProperty) error {
	if len(sorting) == 0 {
		return nil
	}
	for _, sp := range sorting {
		if sp.Property == "" {
			return fmt.Errorf("sort property name is empty")
		}
	}

	var sortErr error
	sort.SliceStable(objs, func(i, j int) bool {
		for _, sp := range sorting {
			c, err := compareProperty(objs[i], objs[j], sp.Property)
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}
			if c == 0 {
				continue
			}
			if sp.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sortErr
}

func fieldValue(obj any, property string) (reflect.Value, bool) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	fv := v.FieldByName(property)
	if !fv.IsValid() {
		return reflect.Value{}, false
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		fv = fv.Elem()
	}
	return fv, true
}

func compareProperty(a, b any, property string) (int, error) {
	av, aok := fieldValue(a, property)
	bv, bok := fieldValue(b, property)
	switch {
	case !aok && !bok:
		return 0, nil
	case !aok:
		return -1, nil
	case !bok:
		return 1, nil
	}
	return compareValues(av, bv, property)
}

func compareValues(a, b reflect.Value, property string) (int, error) {
	if a.Type().ConvertibleTo(timeType) && a.Kind() == reflect.Struct {
		at := a.Convert(timeType).Interface().(time.Time)
		bt := b.Convert(timeType).Interface().(time.Time)
		return at.Compare(bt), nil
	}

	switch a.Kind() {
	case reflect.String:
		return strings.Compare(a.String(), b.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp3(a.Int() < b.Int(), a.Int() > b.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cmp3(a.Uint() < b.Uint(), a.Uint() > b.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return cmp3(a.Float() < b.Float(), a.Float() > b.Float()), nil
	case reflect.Bool:
		return cmp3(!a.Bool() && b.Bool(), a.Bool() && !b.Bool()), nil
	}
	return 0, fmt.Errorf("property %q of kind %s is not sortable", property, a.Kind())
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
