package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/store"
)

// ListRestaurants handles GET /api/restaurants
// Supports name substring filtering plus limit/offset pagination.
func (s *Server) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseLimit(q.Get("limit"), 50, maxBatchItems)
	offset := parseOffset(q.Get("offset"))
	nameFilter := q.Get("name")

	recs, err := s.Store.List(r.Context(), nameFilter, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list restaurants")
		writeError(w, r, http.StatusInternalServerError, "failed to list restaurants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"restaurants": recs,
		"count":       len(recs),
		"limit":       limit,
		"offset":      offset,
	})
}

// GetRestaurant handles GET /api/restaurants/{serverID}
func (s *Server) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "serverID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid server id")
		return
	}

	rec, err := s.Store.GetByServerID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "restaurant not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("serverId", id).Msg("failed to get restaurant")
		writeError(w, r, http.StatusInternalServerError, "failed to get restaurant")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// DeleteRestaurant handles DELETE /api/restaurants/{serverID}
// Deleting an absent record is a no-op success, keeping client retries
// safe.
func (s *Server) DeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "serverID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid server id")
		return
	}

	err = s.Store.Delete(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Int64("serverId", id).Msg("failed to delete restaurant")
		writeError(w, r, http.StatusInternalServerError, "failed to delete restaurant")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"serverId": id,
	})
}
