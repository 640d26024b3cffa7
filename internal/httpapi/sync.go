package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/auth"
	"github.com/wsmontes/concierge-sync/internal/engine"
)

// syncReq is the request body for POST /api/restaurants/sync. The three
// operation lists are applied in order: creates, updates, deletes.
type syncReq struct {
	Create []map[string]any `json:"create"`
	Update []map[string]any `json:"update"`
	Delete []syncDelete     `json:"delete"`
	Atomic bool             `json:"atomic"`
}

// syncDelete targets a record by server id, optionally carrying the
// client's local id for result correlation, or a full document for
// records that never learned their server id.
type syncDelete struct {
	ServerID *int64         `json:"serverId,omitempty"`
	LocalID  *int64         `json:"localId,omitempty"`
	Doc      map[string]any `json:"doc,omitempty"`
}

// SyncRestaurants handles POST /api/restaurants/sync
// Applies a replica's pending changes in one batch. With atomic=true
// the whole batch is rejected if any item fails; otherwise items are
// independent and the response distinguishes full, partial, and failed
// outcomes by status code (200, 207, 422).
func (s *Server) SyncRestaurants(w http.ResponseWriter, r *http.Request) {
	curator := auth.Curator(r.Context())

	var req syncReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid sync request body")
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	total := len(req.Create) + len(req.Update) + len(req.Delete)
	if total == 0 {
		writeError(w, r, http.StatusBadRequest, "empty sync batch")
		return
	}
	if total > maxBatchItems {
		writeError(w, r, http.StatusBadRequest, "batch exceeds maximum size")
		return
	}

	items := make([]engine.BatchItem, 0, total)
	for _, doc := range req.Create {
		items = append(items, engine.BatchItem{Op: engine.OpCreate, Doc: doc})
	}
	for _, doc := range req.Update {
		items = append(items, engine.BatchItem{Op: engine.OpUpdate, Doc: doc})
	}
	for _, del := range req.Delete {
		items = append(items, engine.BatchItem{
			Op:       engine.OpDelete,
			Doc:      del.Doc,
			ServerID: del.ServerID,
			LocalID:  del.LocalID,
		})
	}

	mode := engine.ModeIndependent
	if req.Atomic {
		mode = engine.ModeAtomic
	}

	result, err := s.Engine.ApplyBatch(r.Context(), items, mode)
	if err != nil {
		log.Error().Err(err).Str("curator", curator).Msg("sync batch failed")
		writeError(w, r, http.StatusInternalServerError, "failed to apply batch")
		return
	}

	log.Info().
		Str("curator", curator).
		Str("mode", string(mode)).
		Int("processed", total).
		Int("successful", result.Summary.Successful).
		Int("failed", result.Summary.Failed).
		Msg("sync batch applied")

	writeBatchResult(w, result, total)
}

// ListServerIDs handles GET /api/restaurants/server-ids
// Returns the full snapshot of stored server ids. Replica clients diff
// this against their local records to detect server-side deletions.
func (s *Server) ListServerIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Store.ListServerIDs(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list server ids")
		writeError(w, r, http.StatusInternalServerError, "failed to list server ids")
		return
	}

	out := make([]int64, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"serverIds": out,
		"count":     len(out),
	})
}
