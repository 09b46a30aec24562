/*
Package errors provides semantic error types for transientspace.

The package defines the error scenarios of the identity map and its storage
backends with specific types that can be checked using the standard errors.Is()
function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound           = errors.New("object not found")
	    ErrAlreadyExists      = errors.New("object already exists")
	    ErrInvalidInput       = errors.New("invalid input")
	    ErrConditionFailed    = errors.New("condition check failed")
	    ErrNoIndexMap         = errors.New("no index map found for type")
	    ErrInvariantViolation = errors.New("identity map invariant violated")
	    ErrDuplicateKey       = errors.New("duplicate key")
	    ErrUnmanagedType      = errors.New("type is not managed")
	    ErrStorage            = errors.New("storage failure")
	)

Not found is not an error at the adapter level: a lookup with no match yields
an absent result. An InvariantViolationError means the identity map would have
held two instances for one key and is fatal for the request that produced it.

Usage:

	obj, err := space.GetObjectByKey(ctx, customerType, 1)
	if err != nil {
	    if errors.IsInvariantViolation(err) {
	        // identity map corrupted, abort the unit of work
	    }
	    return err
	}
*/
package errors
