// Package store defines the narrow keyed-storage interface the
// reconciliation engine mutates, plus its error channel. The uniqueness
// constraint on the identity key is enforced by implementations, not by
// application-level locking.
package store

import (
	"context"
	"errors"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/identity"
)

var (
	// ErrNotFound is the "absent" channel, distinct from storage faults.
	ErrNotFound = errors.New("record not found")

	// ErrConflict reports an identity-key uniqueness violation, e.g. a
	// concurrent create racing on the same key.
	ErrConflict = errors.New("identity key conflict")

	// ErrUnavailable reports a timeout or connection fault. Retryable.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is durable keyed storage for restaurant records. At most one
// record exists per identity key at any time.
type Store interface {
	// Insert stores a new record under key and returns its server id.
	// The authoritative store always allocates the id itself; a replica
	// store persisting a record the server already identified keeps the
	// caller-provided rec.ServerID instead, so local copies retain the
	// id the server issued. Fails with ErrConflict when a record
	// already holds the key.
	Insert(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error)

	// Update overwrites the record stored under key, preserving its
	// server id. Fails with ErrNotFound when no record holds the key.
	Update(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error)

	// GetByKey returns the record stored under key, or ErrNotFound.
	GetByKey(ctx context.Context, key identity.Key) (*entity.Record, error)

	// GetByServerID returns the record with the given server id, or ErrNotFound.
	GetByServerID(ctx context.Context, id int64) (*entity.Record, error)

	// ListServerIDs returns the set of all server ids currently stored.
	ListServerIDs(ctx context.Context) (map[int64]struct{}, error)

	// ListSynced returns all records that carry a server id, i.e. have
	// completed at least one successful sync.
	ListSynced(ctx context.Context) ([]*entity.Record, error)

	// List returns records filtered by name substring, newest first.
	List(ctx context.Context, nameFilter string, limit, offset int) ([]*entity.Record, error)

	// Delete physically removes the record with the given server id.
	// Deleting an absent id returns ErrNotFound; callers that treat
	// deletes as idempotent map that to a no-op.
	Delete(ctx context.Context, id int64) error

	// Atomic runs fn against a transactional view of the store. Any
	// error from fn discards every mutation made inside it; no partial
	// effects are observable by other readers at any point.
	Atomic(ctx context.Context, fn func(Store) error) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
