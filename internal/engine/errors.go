package engine

import (
	"fmt"

	"github.com/wsmontes/concierge-sync/internal/identity"
)

// ValidationError rejects a document before identity resolution; the
// record is never stored.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// IdentityConflictError reports a create that collided on an identity
// key and could not be resolved by the single update retry.
type IdentityConflictError struct {
	Key identity.Key
	Err error
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("identity conflict on %s: %v", e.Key, e.Err)
}

func (e *IdentityConflictError) Unwrap() error { return e.Err }

// StoreUnavailableError wraps a timeout or connection fault. Retryable:
// the caller may resubmit the affected item.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable (retryable): %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// NotFoundError reports an update or lookup targeting an identity that
// no longer exists. Deletes of absent records are no-ops, not errors.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Target
}
