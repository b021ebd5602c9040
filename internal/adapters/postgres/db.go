// Package postgres
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"telemetry-collector/internal/logger"
)

func NewPool(ctx context.Context, databaseURL string, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres not responding: %w", err)
	}

	if _, err := pool.Exec(ctx, migration); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate node_rows table: %w", err)
	}

	log.Debug("postgres connection established")
	return pool, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS node_rows (
	id BIGSERIAL PRIMARY KEY,
	collected_at TIMESTAMPTZ NOT NULL,
	node_id BIGINT,
	name TEXT,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS node_rows_collected_at ON node_rows (collected_at);
`
