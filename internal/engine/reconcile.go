package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/store"
)

// ReconcileServerDeletions aligns a local replica with an authoritative
// snapshot of server ids: every locally-stored synced record whose
// server id is absent upstream was deleted on the server while this
// client was offline, and is physically removed here.
//
// The pass never creates or updates anything, and it is idempotent:
// running it twice with unchanged inputs deletes nothing on the second
// run. Cleanup of an already-absent record is a no-op. Cleanup faults
// are surfaced (joined) alongside the ids that were removed, so the
// caller can retry later without side effects; the server deletion is
// never re-attempted because the server mutation already succeeded.
func (e *Engine) ReconcileServerDeletions(ctx context.Context, local store.Store, localSynced []*entity.Record, snapshot map[int64]struct{}) ([]int64, error) {
	deleted := make([]int64, 0)
	var cleanupErrs []error

	for _, rec := range localSynced {
		if rec.ServerID == nil {
			// Never synced; not this pass's concern.
			continue
		}
		if _, present := snapshot[*rec.ServerID]; present {
			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
		err := local.Delete(opCtx, *rec.ServerID)
		cancel()

		if errors.Is(err, store.ErrNotFound) {
			// Already purged by an earlier pass.
			continue
		}
		if err != nil {
			cleanupErrs = append(cleanupErrs,
				fmt.Errorf("local cleanup of server id %d: %w", *rec.ServerID, err))
			continue
		}

		log.Info().
			Int64("serverId", *rec.ServerID).
			Str("name", rec.Name).
			Msg("removed local record deleted upstream")

		if rec.LocalID != nil {
			deleted = append(deleted, *rec.LocalID)
		} else {
			deleted = append(deleted, *rec.ServerID)
		}
	}

	return deleted, errors.Join(cleanupErrs...)
}
