package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open creates a pgx pool, verifies connectivity and ensures the schema.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pending_orders (
        session_id   TEXT PRIMARY KEY,
        image_data   TEXT        NOT NULL,
        city_name    TEXT        NOT NULL DEFAULT '',
        state_name   TEXT        NOT NULL DEFAULT '',
        theme_name   TEXT        NOT NULL DEFAULT '',
        status       TEXT        NOT NULL,
        failed_step  TEXT        NOT NULL DEFAULT '',
        attempts     INTEGER     NOT NULL DEFAULT 0,
        last_error   TEXT        NOT NULL DEFAULT '',
        created_at   TIMESTAMPTZ NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_orders (created_at)`,
	`CREATE TABLE IF NOT EXISTS completed_orders (
        session_id           TEXT PRIMARY KEY,
        mockup_url           TEXT        NOT NULL DEFAULT '',
        fulfillment_order_id TEXT        NOT NULL,
        created_at           TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_completed_created ON completed_orders (created_at)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}
