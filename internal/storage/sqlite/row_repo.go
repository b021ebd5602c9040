package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"telemetry-collector/internal/domain"
)

// RowRepository archives every cycle's rows as JSON documents, one per node.
type RowRepository struct {
	db *sql.DB
}

func NewRowRepository(db *sql.DB) *RowRepository {
	return &RowRepository{db: db}
}

func (r *RowRepository) Name() string { return "sqlite" }

func (r *RowRepository) Write(ctx context.Context, collectedAt time.Time, rows []domain.FlatRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO node_rows (collected_at, node_id, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	stamp := collectedAt.UTC().Format(time.RFC3339)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}

		nodeID, _ := row.Get("node_id")
		if _, err := stmt.ExecContext(ctx, stamp, nodeID, string(data)); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

// CountForCycle reports how many rows were stored for one collection instant.
func (r *RowRepository) CountForCycle(ctx context.Context, collectedAt time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM node_rows WHERE collected_at = ?",
		collectedAt.UTC().Format(time.RFC3339),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}
