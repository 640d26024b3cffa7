package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/auth"
	"github.com/wsmontes/concierge-sync/internal/engine"
	"github.com/wsmontes/concierge-sync/internal/store"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Store           store.Store
	Engine          *engine.Engine
	RateLimitConfig RateLimitInfo
}

// DefaultRateLimitConfig is applied when the caller does not override it.
var DefaultRateLimitConfig = RateLimitInfo{
	WindowSeconds: 60,
	MaxRequests:   600,
	Burst:         120,
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error envelope carrying the correlation id
// so clients can quote it back when reporting problems.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"status":        "error",
		"error":         msg,
		"correlationId": GetCorrelationID(r.Context()),
	})
}

// parseLimit parses a limit query param with default and max
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// parseOffset parses an offset query param, defaulting to zero.
func parseOffset(q string) int {
	n, err := strconv.Atoi(q)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Routes creates the HTTP router with all curation and sync endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	if s.RateLimitConfig == (RateLimitInfo{}) {
		s.RateLimitConfig = DefaultRateLimitConfig
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CorrelationMiddleware)

	// Health check (unauthenticated)
	r.Get("/healthz", s.Health)
	r.Get("/api/health", s.Health)

	// Capability discovery (unauthenticated)
	r.Get("/api/info", s.Info)

	// All curation and sync endpoints require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))
		r.Use(SessionMiddleware)
		r.Use(RateLimitMiddleware(s.RateLimitConfig))

		// Curation ingest
		r.Post("/api/curation/json", s.IngestCuration)

		// Two-way sync
		r.Post("/api/restaurants/sync", s.SyncRestaurants)
		r.Get("/api/restaurants/server-ids", s.ListServerIDs)

		// Restaurant reads and single-record delete
		r.Get("/api/restaurants", s.ListRestaurants)
		r.Get("/api/restaurants/{serverID}", s.GetRestaurant)
		r.Delete("/api/restaurants/{serverID}", s.DeleteRestaurant)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}

// Health handles GET /healthz, reporting store reachability.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
