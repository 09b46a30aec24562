/*
Package objectmap implements the per-session identity map of managed types.

An ObjectMap is created with the closed set of types it manages and maps
each (type, key) pair to exactly one live instance:

	m := objectmap.New(reflect.TypeFor[*Customer]())
	if err := m.Register(customerType, 1, acme); err != nil {
	    // invariant violation: the key or the instance is already registered
	}
	obj, ok := m.Lookup(customerType, 1)

Registration for an unmanaged type is silently ignored. Clear empties the map
on session reload; the managed types stay registered.
*/
package objectmap
