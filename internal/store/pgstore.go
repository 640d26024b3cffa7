package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wsmontes/concierge-sync/internal/entity"
	"github.com/wsmontes/concierge-sync/internal/identity"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// statements serve plain and transactional execution.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the authoritative Store backed by a restaurant table with
// a unique index on (name, locality, curator_id). That index is the
// sole concurrency-control point for concurrent creates.
type Postgres struct {
	q    querier
	pool *pgxpool.Pool // nil inside a transaction
}

// NewPostgres creates a Postgres store on top of a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{q: pool, pool: pool}
}

const recordColumns = `server_id, local_id, name, locality, curator_id, curator_name,
	sync_status, lifecycle, deleted_at_ms, metadata_json, payload_json`

func (p *Postgres) Insert(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	metaJSON, payloadJSON, err := marshalRecord(rec)
	if err != nil {
		return 0, err
	}

	// ON CONFLICT DO NOTHING keeps a key collision from raising a
	// server-side error: inside Atomic a raised 23505 would abort the
	// whole transaction and no retry-as-update could follow. A conflict
	// instead returns zero rows.
	var id int64
	err = p.q.QueryRow(ctx, `
		INSERT INTO restaurant (local_id, name, locality, curator_id, curator_name,
			sync_status, lifecycle, deleted_at_ms, metadata_json, payload_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name, locality, curator_id) DO NOTHING
		RETURNING server_id
	`, rec.LocalID, key.Name, key.Locality, key.CuratorID, rec.CuratorName,
		rec.SyncStatus, rec.Lifecycle, rec.DeletedAtMs, metaJSON, payloadJSON).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrConflict, key)
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, key identity.Key, rec *entity.Record) (int64, error) {
	metaJSON, payloadJSON, err := marshalRecord(rec)
	if err != nil {
		return 0, err
	}

	var id int64
	err = p.q.QueryRow(ctx, `
		UPDATE restaurant SET
			local_id      = $4,
			curator_name  = $5,
			sync_status   = $6,
			lifecycle     = $7,
			deleted_at_ms = $8,
			metadata_json = $9,
			payload_json  = $10,
			updated_at    = NOW()
		WHERE name = $1 AND locality = $2 AND curator_id = $3
		RETURNING server_id
	`, key.Name, key.Locality, key.CuratorID, rec.LocalID, rec.CuratorName,
		rec.SyncStatus, rec.Lifecycle, rec.DeletedAtMs, metaJSON, payloadJSON).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

func (p *Postgres) GetByKey(ctx context.Context, key identity.Key) (*entity.Record, error) {
	row := p.q.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM restaurant
		WHERE name = $1 AND locality = $2 AND curator_id = $3
	`, key.Name, key.Locality, key.CuratorID)
	return scanRecord(row)
}

func (p *Postgres) GetByServerID(ctx context.Context, id int64) (*entity.Record, error) {
	row := p.q.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM restaurant
		WHERE server_id = $1
	`, id)
	return scanRecord(row)
}

func (p *Postgres) ListServerIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := p.q.Query(ctx, `SELECT server_id FROM restaurant`)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapPgError(err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return ids, nil
}

func (p *Postgres) ListSynced(ctx context.Context) ([]*entity.Record, error) {
	rows, err := p.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM restaurant
		ORDER BY server_id
	`)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) List(ctx context.Context, nameFilter string, limit, offset int) ([]*entity.Record, error) {
	rows, err := p.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM restaurant
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY server_id DESC
		LIMIT $2 OFFSET $3
	`, nameFilter, limit, offset)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	tag, err := p.q.Exec(ctx, `DELETE FROM restaurant WHERE server_id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Atomic(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		// Already inside a transaction; nesting joins it.
		return fn(p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit atomic batch")
		return mapPgError(err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	if err := p.pool.Ping(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func marshalRecord(rec *entity.Record) ([]byte, []byte, error) {
	// Metadata is persisted verbatim in insertion order.
	rawEntries := make([]map[string]any, 0, len(rec.Metadata))
	for _, e := range rec.Metadata {
		rawEntries = append(rawEntries, e.Raw)
	}
	metaJSON, err := json.Marshal(rawEntries)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	return metaJSON, payloadJSON, nil
}

func scanRecord(row pgx.Row) (*entity.Record, error) {
	var (
		rec         entity.Record
		serverID    int64
		metaJSON    []byte
		payloadJSON []byte
	)
	err := row.Scan(&serverID, &rec.LocalID, &rec.Name, &rec.Locality, &rec.CuratorID,
		&rec.CuratorName, &rec.SyncStatus, &rec.Lifecycle, &rec.DeletedAtMs,
		&metaJSON, &payloadJSON)
	if err != nil {
		return nil, mapPgError(err)
	}
	rec.ServerID = &serverID

	var rawEntries []map[string]any
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rawEntries); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	rec.Metadata = make([]entity.Entry, 0, len(rawEntries))
	for _, raw := range rawEntries {
		e := entity.Entry{Raw: raw}
		if t, ok := raw["type"].(string); ok {
			e.Type = t
		}
		if d, ok := raw["data"].(map[string]any); ok {
			e.Data = d
		}
		rec.Metadata = append(rec.Metadata, e)
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	return &rec, nil
}

func scanRecords(rows pgx.Rows) ([]*entity.Record, error) {
	out := make([]*entity.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// mapPgError translates driver errors onto the store error channel.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
