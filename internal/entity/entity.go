// Package entity defines the restaurant record model shared by the
// reconciliation engine and the record store.
package entity

// Metadata entry type discriminators as emitted by the collector client.
const (
	TypeRestaurant   = "restaurant"
	TypeCollector    = "collector"
	TypeMichelin     = "michelin"
	TypeGooglePlaces = "google-places"
)

// SyncStatus tracks where a record stands in the sync lifecycle.
// Mutated only by the reconciliation engine.
type SyncStatus string

const (
	StatusPending  SyncStatus = "pending"
	StatusSynced   SyncStatus = "synced"
	StatusConflict SyncStatus = "conflict"
	StatusError    SyncStatus = "error"
)

// Lifecycle models the deletion flow as an explicit three-state machine
// so that reconciliation passes stay idempotent: a record is active,
// flagged for deletion but not yet propagated, or physically purged.
type Lifecycle string

const (
	LifecycleActive        Lifecycle = "active"
	LifecyclePendingDelete Lifecycle = "pending-delete"
	LifecyclePurged        Lifecycle = "purged"
)

// Entry is one typed metadata entry from an exporting client.
// Order within a record is insertion order and is preserved verbatim
// through storage; entries are never reordered or deduplicated.
type Entry struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	Raw  map[string]any `json:"-"`
}

// Record is the unit of synchronization: one curator's view of one
// real-world restaurant.
type Record struct {
	LocalID     *int64         `json:"localId,omitempty"`
	ServerID    *int64         `json:"serverId,omitempty"`
	Name        string         `json:"name"`
	CuratorID   int64          `json:"curatorId"`
	CuratorName string         `json:"curatorName"`
	Locality    string         `json:"locality"`
	Metadata    []Entry        `json:"metadata"`
	Payload     map[string]any `json:"payload"`
	SyncStatus  SyncStatus     `json:"syncStatus"`
	Lifecycle   Lifecycle      `json:"lifecycle"`
	DeletedAtMs *int64         `json:"deletedAt,omitempty"`
}

// FirstEntry returns the first metadata entry of the given type in
// stored order, or nil. When multiple entries of one type exist, "first
// seen" wins.
func (r *Record) FirstEntry(entryType string) *Entry {
	for i := range r.Metadata {
		if r.Metadata[i].Type == entryType {
			return &r.Metadata[i]
		}
	}
	return nil
}

// DeleteRequested reports whether the originating client flagged this
// record for deletion.
func (r *Record) DeleteRequested() bool {
	return r.Lifecycle == LifecyclePendingDelete
}

// Clone returns a shallow-structural copy of the record. Metadata and
// payload maps are shared; callers treat them as immutable.
func (r *Record) Clone() *Record {
	cp := *r
	if r.LocalID != nil {
		v := *r.LocalID
		cp.LocalID = &v
	}
	if r.ServerID != nil {
		v := *r.ServerID
		cp.ServerID = &v
	}
	if r.DeletedAtMs != nil {
		v := *r.DeletedAtMs
		cp.DeletedAtMs = &v
	}
	cp.Metadata = make([]Entry, len(r.Metadata))
	copy(cp.Metadata, r.Metadata)
	return &cp
}
