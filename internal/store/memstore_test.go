package store

import (
	"context"
	"errors"
	"testing"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/identity"
)

func testKey(name string) identity.Key {
	return identity.Key{Name: name, Locality: "Modena", CuratorID: 100}
}

func testRecord(name string) *entity.Record {
	return &entity.Record{
		Name:       name,
		CuratorID:  100,
		Locality:   "Modena",
		SyncStatus: entity.StatusPending,
		Lifecycle:  entity.LifecycleActive,
	}
}

func TestMemoryInsertConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Insert(ctx, testKey("A"), testRecord("A"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == 0 {
		t.Fatal("Insert should assign a non-zero server id")
	}

	if _, err := m.Insert(ctx, testKey("A"), testRecord("A")); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Insert error = %v, want ErrConflict", err)
	}
}

func TestMemoryUpdatePreservesServerID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Insert(ctx, testKey("A"), testRecord("A"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	updated := testRecord("A")
	updated.SyncStatus = entity.StatusSynced
	gotID, err := m.Update(ctx, testKey("A"), updated)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotID != id {
		t.Fatalf("Update returned id %d, want %d (server id never changes)", gotID, id)
	}

	rec, err := m.GetByServerID(ctx, id)
	if err != nil {
		t.Fatalf("GetByServerID: %v", err)
	}
	if rec.SyncStatus != entity.StatusSynced {
		t.Fatalf("SyncStatus = %v, want synced", rec.SyncStatus)
	}
}

func TestMemoryUpdateMissing(t *testing.T) {
	m := NewMemory()
	if _, err := m.Update(context.Background(), testKey("gone"), testRecord("gone")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update error = %v, want ErrNotFound", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, _ := m.Insert(ctx, testKey("A"), testRecord("A"))
	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
	if _, err := m.GetByKey(ctx, testKey("A")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByKey after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryAtomicRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Insert(ctx, testKey("kept"), testRecord("kept")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	boom := errors.New("boom")
	err := m.Atomic(ctx, func(tx Store) error {
		if _, err := tx.Insert(ctx, testKey("discarded"), testRecord("discarded")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic error = %v, want boom", err)
	}

	if _, err := m.GetByKey(ctx, testKey("discarded")); !errors.Is(err, ErrNotFound) {
		t.Fatal("mutation inside failed Atomic must not be observable")
	}
	if _, err := m.GetByKey(ctx, testKey("kept")); err != nil {
		t.Fatalf("pre-existing record lost after rollback: %v", err)
	}
}

func TestMemoryAtomicCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Atomic(ctx, func(tx Store) error {
		_, err := tx.Insert(ctx, testKey("A"), testRecord("A"))
		return err
	})
	if err != nil {
		t.Fatalf("Atomic: %v", err)
	}
	if _, err := m.GetByKey(ctx, testKey("A")); err != nil {
		t.Fatalf("committed record missing: %v", err)
	}
}

func TestMemoryListFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, name := range []string{"Osteria Francescana", "Trattoria Aldina", "Franceschetta 58"} {
		key := identity.Key{Name: name, Locality: "Modena", CuratorID: 1}
		rec := testRecord(name)
		rec.CuratorID = 1
		if _, err := m.Insert(ctx, key, rec); err != nil {
			t.Fatalf("Insert %s: %v", name, err)
		}
	}

	got, err := m.List(ctx, "frances", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(frances) returned %d records, want 2", len(got))
	}

	page, err := m.List(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("offset page returned %d records, want 1", len(page))
	}
}

func TestMemoryListSynced(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	presetID := int64(99)
	preset := testRecord("replica copy")
	preset.ServerID = &presetID
	if _, err := m.Insert(ctx, testKey("replica copy"), preset); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	synced, err := m.ListSynced(ctx)
	if err != nil {
		t.Fatalf("ListSynced: %v", err)
	}
	if len(synced) != 1 || *synced[0].ServerID != presetID {
		t.Fatalf("ListSynced = %+v, want the preset server id preserved", synced)
	}

	// Subsequent inserts allocate past preset ids.
	id, _ := m.Insert(ctx, testKey("fresh"), testRecord("fresh"))
	if id <= presetID {
		t.Fatalf("fresh id %d should be allocated past preset %d", id, presetID)
	}
}
