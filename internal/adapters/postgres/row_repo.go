package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telemetry-collector/internal/domain"
)

var copyColumns = []string{"collected_at", "node_id", "name", "data"}

type RowRepository struct {
	db *pgxpool.Pool
}

func NewRowRepository(db *pgxpool.Pool) *RowRepository {
	return &RowRepository{db: db}
}

func (r *RowRepository) Name() string { return "postgres" }

func (r *RowRepository) Write(ctx context.Context, collectedAt time.Time, rows []domain.FlatRow) error {
	copyRows, err := toCopyRows(collectedAt, rows)
	if err != nil {
		return err
	}

	_, err = r.db.CopyFrom(
		ctx,
		pgx.Identifier{"node_rows"},
		copyColumns,
		pgx.CopyFromRows(copyRows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy node rows: %w", err)
	}
	return nil
}

func toCopyRows(collectedAt time.Time, rows []domain.FlatRow) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row %d: %w", i, err)
		}

		nodeID, _ := row.Get("node_id")
		name, _ := row.Get("name")
		out[i] = []any{collectedAt.UTC(), nodeID, name, data}
	}
	return out, nil
}
