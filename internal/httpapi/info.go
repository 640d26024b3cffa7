package httpapi

import (
	"net/http"
	"time"
)

// ServerInfo represents the server's capabilities and configuration
type ServerInfo struct {
	APIVersion       string         `json:"apiVersion"`
	ServerTime       string         `json:"serverTime"`
	MaxBatch         int            `json:"maxBatch"`
	AtomicBatches    bool           `json:"atomicBatches"`
	MinClientVersion string         `json:"minClientVersion"`
	RateLimit        *RateLimitInfo `json:"rateLimit,omitempty"`
	Hints            *SyncHints     `json:"hints,omitempty"`
}

// RateLimitInfo describes the server's rate limiting policy
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds"` // e.g. 60
	MaxRequests   int `json:"maxRequests"`   // per window
	Burst         int `json:"burst"`         // token bucket size
}

// SyncHints provides recommendations for client behavior
type SyncHints struct {
	RecommendedBatch int `json:"recommendedBatch"` // safe batch size
	BackoffMsOn429   int `json:"backoffMsOn429"`   // default backoff if Retry-After missing
}

// maxBatchItems caps a single sync or curation request.
const maxBatchItems = 1000

// Info handles GET /api/info
// Returns server capabilities, API version, and supported features
// This endpoint can be called without authentication to allow capability discovery
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{
		APIVersion:       "1.0",
		ServerTime:       time.Now().UTC().Format(time.RFC3339Nano),
		MaxBatch:         maxBatchItems,
		AtomicBatches:    true,
		MinClientVersion: "0.1.0",
		RateLimit:        &s.RateLimitConfig,
		Hints: &SyncHints{
			RecommendedBatch: 500,
			BackoffMsOn429:   1500,
		},
	}

	writeJSON(w, http.StatusOK, info)
}
