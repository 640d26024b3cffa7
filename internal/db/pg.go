package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Open creates a new PostgreSQL connection pool
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	// Connection pool configuration
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("postgres connection pool created")

	return pool, nil
}

// EnsureSchema creates the restaurant table if it does not exist. The
// unique index on (name, locality, curator_id) is the storage-level
// identity constraint: concurrent creates for one identity key resolve
// deterministically here, not via application locks.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS restaurant (
			server_id     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			local_id      BIGINT,
			name          TEXT NOT NULL,
			locality      TEXT NOT NULL,
			curator_id    BIGINT NOT NULL,
			curator_name  TEXT NOT NULL DEFAULT 'Unknown',
			sync_status   TEXT NOT NULL DEFAULT 'pending',
			lifecycle     TEXT NOT NULL DEFAULT 'active',
			deleted_at_ms BIGINT,
			metadata_json JSONB NOT NULL DEFAULT '[]',
			payload_json  JSONB NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (name, locality, curator_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_restaurant_local_id ON restaurant (local_id)
	`)
	return err
}
