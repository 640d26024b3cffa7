package entity

import (
	"errors"
	"strings"

	"github.com/wsmontes/concierge-sync/internal/metax"
)

// ErrMissingName marks a document rejected before identity resolution.
var ErrMissingName = errors.New("missing restaurant name in collector metadata")

// ErrMalformedMetadata marks a document whose metadata array cannot be read.
var ErrMalformedMetadata = errors.New("malformed metadata")

// FromDocument parses a wire document from an exporting client into a
// Record. The full document is carried through as the opaque payload;
// only the fields needed for identity resolution and sync bookkeeping
// are lifted out.
//
// Curator resolution priority: the restaurant-typed system entry's
// created-by curator, then its modified-by curator; absent either, the
// record belongs to curator 0 "Unknown".
func FromDocument(doc map[string]any) (*Record, error) {
	rec := &Record{
		Payload:     doc,
		CuratorName: "Unknown",
		SyncStatus:  StatusPending,
		Lifecycle:   LifecycleActive,
	}

	rawMeta, ok := doc["metadata"]
	if !ok {
		return nil, ErrMalformedMetadata
	}
	list, ok := rawMeta.([]any)
	if !ok {
		return nil, ErrMalformedMetadata
	}

	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, ErrMalformedMetadata
		}
		entry := Entry{Raw: m}
		entry.Type, _ = metax.GetString(m, "type")
		entry.Data, _ = metax.GetMap(m, "data")
		rec.Metadata = append(rec.Metadata, entry)
	}

	if entry := rec.FirstEntry(TypeCollector); entry != nil && entry.Data != nil {
		if name, ok := metax.GetString(entry.Data, "name"); ok {
			rec.Name = strings.TrimSpace(name)
		}
	}
	if rec.Name == "" {
		return nil, ErrMissingName
	}

	if entry := rec.FirstEntry(TypeRestaurant); entry != nil {
		parseSystemEntry(rec, entry.Raw)
	}

	return rec, nil
}

// parseSystemEntry lifts ids, curator attribution, and sync state out of
// the restaurant-typed system metadata entry.
func parseSystemEntry(rec *Record, raw map[string]any) {
	if id, ok := metax.GetInt64(raw, "id"); ok {
		rec.LocalID = &id
	}
	if id, ok := metax.GetInt64(raw, "serverId"); ok {
		rec.ServerID = &id
	}

	for _, field := range []string{"created", "modified"} {
		if block, ok := metax.GetMap(raw, field); ok {
			if curator, ok := metax.GetMap(block, "curator"); ok {
				if id, ok := metax.GetInt64(curator, "id"); ok {
					rec.CuratorID = id
					if name, ok := metax.GetString(curator, "name"); ok {
						rec.CuratorName = name
					}
					break
				}
			}
		}
	}

	if sync, ok := metax.GetMap(raw, "sync"); ok {
		if status, ok := metax.GetString(sync, "status"); ok {
			rec.SyncStatus = SyncStatus(status)
		}
		deleted, _ := metax.GetBool(sync, "deletedLocally")
		if ds, ok := metax.GetString(sync, "deletedAt"); ok {
			if ms, ok2 := metax.ParseTimeToMs(ds); ok2 {
				rec.DeletedAtMs = &ms
			}
			deleted = true
		}
		if deleted {
			rec.Lifecycle = LifecyclePendingDelete
			if rec.DeletedAtMs == nil {
				ms := metax.NowMs()
				rec.DeletedAtMs = &ms
			}
		}
	}
}
