package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/auth"
	"github.com/wsmontes/concierge-sync/internal/engine"
)

var (
	errEmptyBody     = errors.New("empty request body")
	errMalformedBody = errors.New("malformed request body")
)

// batchResponse is the envelope shared by the curation and sync
// endpoints.
type batchResponse struct {
	Status    engine.Status       `json:"status"`
	Processed int                 `json:"processed"`
	Summary   engine.Summary      `json:"summary"`
	Results   []engine.ItemResult `json:"results"`
}

// httpStatus maps the batch verdict onto a status code the client can
// branch on without parsing the body.
func httpStatus(s engine.Status) int {
	switch s {
	case engine.StatusFull:
		return http.StatusOK
	case engine.StatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeBatchResult(w http.ResponseWriter, result *engine.BatchResult, processed int) {
	writeJSON(w, httpStatus(result.Status), batchResponse{
		Status:    result.Status,
		Processed: processed,
		Summary:   result.Summary,
		Results:   result.PerItem,
	})
}

// IngestCuration handles POST /api/curation/json
// Accepts a curation export: either a single restaurant document, a
// JSON array of documents, or an object with a "restaurants" list.
// Every document is applied as a create; a document matching an
// existing identity updates it in place.
func (s *Server) IngestCuration(w http.ResponseWriter, r *http.Request) {
	curator := auth.Curator(r.Context())

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		log.Warn().Err(err).Msg("invalid curation request body")
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	docs, err := curationDocs(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(docs) == 0 {
		writeError(w, r, http.StatusBadRequest, "no restaurant documents in request")
		return
	}
	if len(docs) > maxBatchItems {
		writeError(w, r, http.StatusBadRequest, "batch exceeds maximum size")
		return
	}

	items := make([]engine.BatchItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, engine.BatchItem{Op: engine.OpCreate, Doc: doc})
	}

	result, err := s.Engine.ApplyBatch(r.Context(), items, engine.ModeIndependent)
	if err != nil {
		log.Error().Err(err).Str("curator", curator).Msg("curation batch failed")
		writeError(w, r, http.StatusInternalServerError, "failed to apply batch")
		return
	}

	log.Info().
		Str("curator", curator).
		Int("processed", len(items)).
		Int("successful", result.Summary.Successful).
		Int("failed", result.Summary.Failed).
		Msg("curation batch applied")

	writeBatchResult(w, result, len(items))
}

// curationDocs normalizes the three accepted request shapes into a
// document list.
func curationDocs(raw json.RawMessage) ([]map[string]any, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	if trimmed[0] == '[' {
		var docs []map[string]any
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, errMalformedBody
		}
		return docs, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errMalformedBody
	}

	if list, ok := obj["restaurants"]; ok {
		var docs []map[string]any
		if err := json.Unmarshal(list, &docs); err != nil {
			return nil, errMalformedBody
		}
		return docs, nil
	}

	// Single bare document.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errMalformedBody
	}
	return []map[string]any{doc}, nil
}
