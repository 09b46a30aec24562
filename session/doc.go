/*
Package session defines the contract between a host object space and the
components that extend it.

A Session owns the identity map and change tracking for every object type.
Extensions implement Listener and subscribe with Session.AddListener; the
session raises an event before each retrieval, reload or commit, and a
listener may answer it (SetTarget, SetObject, SetObjects) or leave it to the
session's default handling.

Objects find their session through the Link interface, which domain types
get by embedding LinkBase:

	type Customer struct {
	    session.LinkBase
	    ID   int
	    Name string
	}

Collections are lazy: the FetchFunc behind a Collection runs each time the
collection is loaded, never when it is created.
*/
package session
