package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/engine"
	"github.com/wsmontes/concierge-sync/internal/store"
)

// Reconciler runs the server-deletion pass for a local replica: fetch
// the authoritative server-id snapshot, then remove local records whose
// server counterpart disappeared while this replica was offline.
type Reconciler struct {
	HTTP   *HTTPClient
	Local  store.Store
	Engine *engine.Engine
}

// NewReconciler wires a reconciler over a local replica store.
func NewReconciler(httpc *HTTPClient, local store.Store) *Reconciler {
	return &Reconciler{HTTP: httpc, Local: local, Engine: engine.New(local)}
}

type serverIDsResponse struct {
	Status    string  `json:"status"`
	ServerIDs []int64 `json:"serverIds"`
	Count     int     `json:"count"`
}

// FetchServerIDs retrieves the server's id snapshot as a set.
func (r *Reconciler) FetchServerIDs(ctx context.Context) (map[int64]struct{}, error) {
	resp, err := r.HTTP.Do(ctx, http.MethodGet, "/api/restaurants/server-ids", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch server ids: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch server ids: status %d: %s", resp.StatusCode, body)
	}

	var out serverIDsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode server ids: %w", err)
	}

	snapshot := make(map[int64]struct{}, len(out.ServerIDs))
	for _, id := range out.ServerIDs {
		snapshot[id] = struct{}{}
	}
	return snapshot, nil
}

// Run performs one reconciliation pass and returns the local ids that
// were removed. Safe to re-run: an unchanged snapshot deletes nothing
// the second time.
func (r *Reconciler) Run(ctx context.Context) ([]int64, error) {
	snapshot, err := r.FetchServerIDs(ctx)
	if err != nil {
		return nil, err
	}

	local, err := r.Local.ListSynced(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local synced records: %w", err)
	}

	deleted, err := r.Engine.ReconcileServerDeletions(ctx, r.Local, local, snapshot)

	log.Info().
		Int("serverRecords", len(snapshot)).
		Int("localSynced", len(local)).
		Int("deleted", len(deleted)).
		Msg("server-deletion reconciliation pass finished")

	return deleted, err
}
