package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/wsmontes/concierge-sync/internal/engine"
)

func TestSyncCreateUpdateDelete(t *testing.T) {
	router, mem := newTestServer(t)

	// Create two records.
	var created batchResponse
	rec := doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"create": []any{
			testDoc("Alpha", 100, "Modena", 1),
			testDoc("Beta", 100, "Modena", 2),
		},
	}, &created)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, want 200", rec.Code)
	}
	if created.Summary.Created != 2 {
		t.Fatalf("created summary = %+v, want 2 created", created.Summary)
	}
	alphaID := *created.Results[0].ServerID

	// Update the first, delete the second.
	var mixed batchResponse
	rec = doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"update": []any{testDoc("Alpha", 100, "Modena", 1)},
		"delete": []any{map[string]any{"serverId": *created.Results[1].ServerID, "localId": 2}},
	}, &mixed)
	if rec.Code != http.StatusOK {
		t.Fatalf("mixed status = %d, want 200", rec.Code)
	}
	if mixed.Summary.Updated != 1 || mixed.Summary.Deleted != 1 {
		t.Fatalf("mixed summary = %+v, want 1 updated / 1 deleted", mixed.Summary)
	}

	ids, _ := mem.ListServerIDs(context.Background())
	if len(ids) != 1 {
		t.Fatalf("stored records = %d, want 1", len(ids))
	}
	if _, ok := ids[alphaID]; !ok {
		t.Fatal("updated record must survive")
	}
}

func TestSyncAtomicRejectsWholeBatch(t *testing.T) {
	router, mem := newTestServer(t)

	var resp batchResponse
	rec := doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"atomic": true,
		"create": []any{
			testDoc("Good", 100, "Modena", 1),
			map[string]any{}, // invalid
		},
	}, &resp)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if resp.Status != engine.StatusFailed || resp.Summary.Successful != 0 {
		t.Fatalf("resp = %+v, want fully rejected", resp.Summary)
	}

	ids, _ := mem.ListServerIDs(context.Background())
	if len(ids) != 0 {
		t.Fatalf("stored records = %d, want 0 after atomic rejection", len(ids))
	}
}

func TestSyncEmptyBatchRejected(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty batch", rec.Code)
	}
}

func TestListServerIDs(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"create": []any{
			testDoc("One", 100, "Modena", 1),
			testDoc("Two", 100, "Modena", 2),
		},
	}, nil)

	var resp struct {
		Status    string  `json:"status"`
		ServerIDs []int64 `json:"serverIds"`
		Count     int     `json:"count"`
	}
	rec := doJSON(t, router, "GET", "/api/restaurants/server-ids", nil, &resp)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Count != 2 || len(resp.ServerIDs) != 2 {
		t.Fatalf("resp = %+v, want two server ids", resp)
	}
	if resp.ServerIDs[0] >= resp.ServerIDs[1] {
		t.Fatal("server ids must be sorted ascending")
	}
}

// A delete document for a record with no known server id resolves the
// target through its identity key.
func TestSyncDeleteByDocument(t *testing.T) {
	router, mem := newTestServer(t)

	doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"create": []any{testDoc("Doomed", 100, "Modena", 7)},
	}, nil)

	var resp batchResponse
	rec := doJSON(t, router, "POST", "/api/restaurants/sync", map[string]any{
		"delete": []any{map[string]any{"doc": testDoc("Doomed", 100, "Modena", 7)}},
	}, &resp)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Summary.Deleted != 1 {
		t.Fatalf("summary = %+v, want 1 deleted", resp.Summary)
	}
	ids, _ := mem.ListServerIDs(context.Background())
	if len(ids) != 0 {
		t.Fatalf("stored records = %d, want 0", len(ids))
	}
}
