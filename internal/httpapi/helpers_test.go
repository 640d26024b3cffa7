package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wsmontes/concierge-sync/internal/auth"
	"github.com/wsmontes/concierge-sync/internal/engine"
	"github.com/wsmontes/concierge-sync/internal/store"
)

// newTestServer builds a router over an in-memory store with dev-mode
// auth, so handler tests run without a database or real tokens.
func newTestServer(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	srv := &Server{
		Store:  mem,
		Engine: engine.New(mem),
		// Wide-open limits so handler tests never trip the limiter.
		RateLimitConfig: RateLimitInfo{WindowSeconds: 1, MaxRequests: 100000, Burst: 100000},
	}
	return srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true}), mem
}

// doJSON sends body as JSON with dev-mode curator credentials and
// decodes the response envelope into out (when non-nil).
func doJSON(t *testing.T, router http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Debug-Sub", "test-curator")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode response (status %d): %v", rec.Code, err)
		}
	}
	return rec
}

// testDoc builds a collector-format restaurant document.
func testDoc(name string, curatorID int64, city string, localID int64) map[string]any {
	return map[string]any{
		"metadata": []any{
			map[string]any{
				"type": "restaurant",
				"id":   localID,
				"created": map[string]any{
					"curator": map[string]any{"id": curatorID, "name": "Curator"},
				},
			},
			map[string]any{
				"type": "collector",
				"data": map[string]any{"name": name},
			},
			map[string]any{
				"type": "michelin",
				"data": map[string]any{"guide": map[string]any{"city": city}},
			},
		},
	}
}
