package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/identity"
)

// Memory is an in-memory Store. It backs unit tests and the dev-mode
// server when no database is configured, and doubles as the local
// replica store in client-side reconciliation.
type Memory struct {
	mu     sync.Mutex
	byKey  map[identity.Key]*entity.Record
	byID   map[int64]identity.Key
	nextID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byKey:  make(map[identity.Key]*entity.Record),
		byID:   make(map[int64]identity.Key),
		nextID: 1,
	}
}

func (m *Memory) Insert(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(key, rec)
}

func (m *Memory) Update(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(key, rec)
}

func (m *Memory) GetByKey(ctx context.Context, key identity.Key) (*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getByKeyLocked(key)
}

func (m *Memory) GetByServerID(ctx context.Context, id int64) (*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getByServerIDLocked(id)
}

func (m *Memory) ListServerIDs(ctx context.Context) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listServerIDsLocked()
}

func (m *Memory) ListSynced(ctx context.Context) ([]*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listSyncedLocked()
}

func (m *Memory) List(ctx context.Context, nameFilter string, limit, offset int) ([]*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(nameFilter, limit, offset)
}

func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

// Atomic holds the store lock for the duration of fn, so no other
// reader can observe partial effects; on error the pre-transaction
// state is restored wholesale.
func (m *Memory) Atomic(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backupByKey := make(map[identity.Key]*entity.Record, len(m.byKey))
	for k, v := range m.byKey {
		backupByKey[k] = v
	}
	backupByID := make(map[int64]identity.Key, len(m.byID))
	for k, v := range m.byID {
		backupByID[k] = v
	}
	backupNext := m.nextID

	if err := fn(&memoryTx{m}); err != nil {
		m.byKey = backupByKey
		m.byID = backupByID
		m.nextID = backupNext
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// memoryTx exposes the locked operations to an Atomic callback without
// re-acquiring the mutex.
type memoryTx struct {
	m *Memory
}

func (t *memoryTx) Insert(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	return t.m.insertLocked(key, rec)
}

func (t *memoryTx) Update(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	return t.m.updateLocked(key, rec)
}

func (t *memoryTx) GetByKey(ctx context.Context, key identity.Key) (*entity.Record, error) {
	return t.m.getByKeyLocked(key)
}

func (t *memoryTx) GetByServerID(ctx context.Context, id int64) (*entity.Record, error) {
	return t.m.getByServerIDLocked(id)
}

func (t *memoryTx) ListServerIDs(ctx context.Context) (map[int64]struct{}, error) {
	return t.m.listServerIDsLocked()
}

func (t *memoryTx) ListSynced(ctx context.Context) ([]*entity.Record, error) {
	return t.m.listSyncedLocked()
}

func (t *memoryTx) List(ctx context.Context, nameFilter string, limit, offset int) ([]*entity.Record, error) {
	return t.m.listLocked(nameFilter, limit, offset)
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	return t.m.deleteLocked(id)
}

func (t *memoryTx) Atomic(ctx context.Context, fn func(Store) error) error {
	// Already inside a transaction; nesting joins it.
	return fn(t)
}

func (t *memoryTx) Ping(ctx context.Context) error { return nil }

// Locked operations. Callers hold m.mu.

func (m *Memory) insertLocked(key identity.Key, rec *entity.Record) (int64, error) {
	if _, exists := m.byKey[key]; exists {
		return 0, ErrConflict
	}

	stored := rec.Clone()
	var id int64
	if stored.ServerID != nil {
		// A replica persisting a server-assigned id keeps it.
		id = *stored.ServerID
		if id >= m.nextID {
			m.nextID = id + 1
		}
	} else {
		id = m.nextID
		m.nextID++
		stored.ServerID = &id
	}

	m.byKey[key] = stored
	m.byID[id] = key
	return id, nil
}

func (m *Memory) updateLocked(key identity.Key, rec *entity.Record) (int64, error) {
	existing, exists := m.byKey[key]
	if !exists {
		return 0, ErrNotFound
	}

	stored := rec.Clone()
	stored.ServerID = existing.ServerID
	m.byKey[key] = stored
	return *existing.ServerID, nil
}

func (m *Memory) getByKeyLocked(key identity.Key) (*entity.Record, error) {
	rec, exists := m.byKey[key]
	if !exists {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) getByServerIDLocked(id int64) (*entity.Record, error) {
	key, exists := m.byID[id]
	if !exists {
		return nil, ErrNotFound
	}
	return m.byKey[key].Clone(), nil
}

func (m *Memory) listServerIDsLocked() (map[int64]struct{}, error) {
	ids := make(map[int64]struct{}, len(m.byID))
	for id := range m.byID {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *Memory) listSyncedLocked() ([]*entity.Record, error) {
	out := make([]*entity.Record, 0, len(m.byKey))
	for _, rec := range m.byKey {
		if rec.ServerID != nil {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ServerID < *out[j].ServerID })
	return out, nil
}

func (m *Memory) listLocked(nameFilter string, limit, offset int) ([]*entity.Record, error) {
	filter := strings.ToLower(nameFilter)
	all := make([]*entity.Record, 0, len(m.byKey))
	for _, rec := range m.byKey {
		if filter != "" && !strings.Contains(strings.ToLower(rec.Name), filter) {
			continue
		}
		all = append(all, rec.Clone())
	}
	// Newest first; server ids are monotonic.
	sort.Slice(all, func(i, j int) bool { return *all[i].ServerID > *all[j].ServerID })

	if offset >= len(all) {
		return []*entity.Record{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) deleteLocked(id int64) error {
	key, exists := m.byID[id]
	if !exists {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byKey, key)
	return nil
}
