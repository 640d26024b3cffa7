// Package engine implements the entity-resolution and two-way sync
// reconciliation core: it decides create-vs-update-vs-delete for each
// incoming record against the record store, keyed by identity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/identity"
	"github.com/wsmontes/concierge-sync/internal/store"
)

// DefaultOpTimeout bounds each individual storage operation. A timeout
// is a retryable per-item error, never a batch-fatal condition.
const DefaultOpTimeout = 10 * time.Second

// Engine orchestrates batches of incoming records against a Store.
// Safe for concurrent use: all state lives in the store, whose identity
// uniqueness constraint is the sole concurrency-control point.
type Engine struct {
	store     store.Store
	opTimeout time.Duration
}

// New creates an Engine on top of the given store.
func New(st store.Store) *Engine {
	return &Engine{store: st, opTimeout: DefaultOpTimeout}
}

// ResolveIdentity computes the identity key for a record. Pure.
func (e *Engine) ResolveIdentity(rec *entity.Record) identity.Key {
	return identity.ResolveKey(rec)
}

// ApplyBatch applies an ordered list of tagged records. In independent
// mode each item is processed in isolation; in atomic mode the whole
// batch is rejected on the first failing item and no partial effects
// remain observable.
//
// Per-item faults are captured in the result, never returned as an
// error; only an orchestration fault aborts the call.
func (e *Engine) ApplyBatch(ctx context.Context, items []BatchItem, mode Mode) (*BatchResult, error) {
	if mode == ModeAtomic {
		return e.applyAtomic(ctx, items)
	}

	result := &BatchResult{PerItem: make([]ItemResult, 0, len(items))}
	for _, item := range items {
		result.PerItem = append(result.PerItem, e.applyOne(ctx, e.store, item))
	}
	result.finalize()
	return result, nil
}

// errAtomicItem marks a rollback caused by a failing batch item, as
// opposed to a transaction fault in the store itself.
var errAtomicItem = errors.New("atomic batch item failed")

func (e *Engine) applyAtomic(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	result := &BatchResult{PerItem: make([]ItemResult, 0, len(items))}

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		for _, item := range items {
			res := e.applyOne(ctx, tx, item)
			result.PerItem = append(result.PerItem, res)
			if res.Outcome == OutcomeError {
				return fmt.Errorf("%w: %s", errAtomicItem, res.Error)
			}
		}
		return nil
	})

	// A begin/commit fault is an orchestration failure of the whole
	// call, not a batch verdict.
	if err != nil && !errors.Is(err, errAtomicItem) {
		return nil, fmt.Errorf("atomic batch: %w", err)
	}

	if err != nil {
		// The transaction rolled back: nothing in this batch took
		// effect, including the items that individually succeeded.
		aborted := make([]ItemResult, 0, len(items))
		for i, item := range items {
			if i < len(result.PerItem) && result.PerItem[i].Outcome == OutcomeError {
				aborted = append(aborted, result.PerItem[i])
				continue
			}
			aborted = append(aborted, ItemResult{
				LocalID: item.LocalID,
				Op:      item.Op,
				Outcome: OutcomeError,
				Error:   "atomic batch aborted",
			})
		}
		result.PerItem = aborted
		result.Summary = Summary{}
		result.finalize()
		return result, nil
	}

	result.finalize()
	return result, nil
}

// applyOne evaluates the per-record state machine against st.
func (e *Engine) applyOne(ctx context.Context, st store.Store, item BatchItem) ItemResult {
	res := ItemResult{Op: item.Op, LocalID: item.LocalID}

	if item.Op == OpDelete {
		return e.applyDelete(ctx, st, item, res)
	}

	rec, err := entity.FromDocument(item.Doc)
	if err != nil {
		res.Outcome = OutcomeError
		res.Error = (&ValidationError{Reason: err.Error()}).Error()
		return res
	}
	if res.LocalID == nil {
		res.LocalID = rec.LocalID
	}

	// A record the client flagged for deletion is a delete regardless of
	// the batch tag.
	if rec.DeleteRequested() {
		res.Op = OpDelete
		return e.applyDeleteRecord(ctx, st, rec, res)
	}

	key := identity.ResolveKey(rec)
	rec.Locality = key.Locality
	rec.SyncStatus = entity.StatusSynced
	rec.Lifecycle = entity.LifecycleActive

	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	switch item.Op {
	case OpUpdate:
		id, err := st.Update(opCtx, key, rec)
		if err != nil {
			return e.mutationError(res, key, err)
		}
		res.ServerID = &id
		res.Outcome = OutcomeSuccess
		res.Action = ActionUpdated
		return res

	default: // OpCreate
		id, err := st.Insert(opCtx, key, rec)
		if errors.Is(err, store.ErrConflict) {
			// Another record holds this identity: a curator revising
			// their own entry, or a concurrent create that lost the
			// race. Retry exactly once as an update-in-place.
			log.Debug().Str("key", key.String()).Msg("create matched existing identity, updating in place")
			id, err = st.Update(opCtx, key, rec)
			if err != nil {
				res.Outcome = OutcomeError
				res.Error = (&IdentityConflictError{Key: key, Err: err}).Error()
				return res
			}
			res.ServerID = &id
			res.Outcome = OutcomeSuccess
			res.Action = ActionUpdated
			return res
		}
		if err != nil {
			return e.mutationError(res, key, err)
		}
		res.ServerID = &id
		res.Outcome = OutcomeSuccess
		res.Action = ActionCreated
		return res
	}
}

// applyDelete removes a stored record by server id, resolving the
// target from the item or its document. Deleting an already-absent
// record is a successful no-op.
func (e *Engine) applyDelete(ctx context.Context, st store.Store, item BatchItem, res ItemResult) ItemResult {
	if item.ServerID == nil && item.Doc != nil {
		rec, err := entity.FromDocument(item.Doc)
		if err != nil {
			res.Outcome = OutcomeError
			res.Error = (&ValidationError{Reason: err.Error()}).Error()
			return res
		}
		if res.LocalID == nil {
			res.LocalID = rec.LocalID
		}
		return e.applyDeleteRecord(ctx, st, rec, res)
	}

	if item.ServerID == nil {
		res.Outcome = OutcomeError
		res.Error = (&ValidationError{Reason: "delete requires a serverId"}).Error()
		return res
	}

	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	return e.deleteByID(opCtx, st, *item.ServerID, res)
}

// applyDeleteRecord deletes by the record's server id, falling back to
// an identity-key lookup for records that never learned their id.
func (e *Engine) applyDeleteRecord(ctx context.Context, st store.Store, rec *entity.Record, res ItemResult) ItemResult {
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	if rec.ServerID != nil {
		return e.deleteByID(opCtx, st, *rec.ServerID, res)
	}

	stored, err := st.GetByKey(opCtx, identity.ResolveKey(rec))
	if errors.Is(err, store.ErrNotFound) {
		// Never stored; nothing to delete.
		res.Outcome = OutcomeSuccess
		res.Action = ActionDeleted
		return res
	}
	if err != nil {
		return e.mutationError(res, identity.ResolveKey(rec), err)
	}
	return e.deleteByID(opCtx, st, *stored.ServerID, res)
}

func (e *Engine) deleteByID(ctx context.Context, st store.Store, id int64, res ItemResult) ItemResult {
	res.ServerID = &id
	err := st.Delete(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		res.Outcome = OutcomeError
		res.Error = (&StoreUnavailableError{Err: err}).Error()
		return res
	}
	res.Outcome = OutcomeSuccess
	res.Action = ActionDeleted
	return res
}

// mutationError maps store faults onto the per-item error taxonomy.
func (e *Engine) mutationError(res ItemResult, key identity.Key, err error) ItemResult {
	res.Outcome = OutcomeError
	switch {
	case errors.Is(err, store.ErrNotFound):
		res.Error = (&NotFoundError{Target: key.String()}).Error()
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		res.Error = (&StoreUnavailableError{Err: err}).Error()
	case errors.Is(err, store.ErrConflict):
		res.Error = (&IdentityConflictError{Key: key, Err: err}).Error()
	default:
		res.Error = err.Error()
	}
	return res
}
