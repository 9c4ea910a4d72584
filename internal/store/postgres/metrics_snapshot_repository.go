package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
	"github.com/clusterhealth/copilot/internal/signal"
)

// MetricsSnapshotRepository persists one row per Observation Loop tick
// (§4.2's `persist_snapshot(signals)` step), independent of whether
// that tick produced an Assessment.
type MetricsSnapshotRepository struct {
	db *sqlx.DB
}

func NewMetricsSnapshotRepository(db *sqlx.DB) *MetricsSnapshotRepository {
	return &MetricsSnapshotRepository{db: db}
}

// Create persists snapshot as a metrics_snapshots row. Each call
// generates a fresh UUID, so a write repeated under retry stores a
// second row.
func (r *MetricsSnapshotRepository) Create(ctx context.Context, snapshot signal.Snapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode snapshot", "postgres", "metrics_snapshots", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metrics_snapshots (id, timestamp, metrics)
		VALUES ($1, $2, $3)`,
		uuid.New().String(), snapshot.Timestamp, body,
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("insert", "postgres", "metrics_snapshots", err)
	}
	return nil
}

type metricsSnapshotRow struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Metrics   []byte    `db:"metrics"`
}

// Recent fetches the limit most recent snapshots, newest first — the
// "recent signal history" input to the deep narrator step (§4.3).
func (r *MetricsSnapshotRepository) Recent(ctx context.Context, limit int) ([]signal.Snapshot, error) {
	var rows []metricsSnapshotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, timestamp, metrics
		FROM metrics_snapshots
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("query recent", "postgres", "metrics_snapshots", err)
	}

	out := make([]signal.Snapshot, 0, len(rows))
	for _, row := range rows {
		var snap signal.Snapshot
		if err := json.Unmarshal(row.Metrics, &snap); err != nil {
			return nil, copilotErrors.FailedToWithDetails("decode snapshot", "postgres", "metrics_snapshots", err)
		}
		out = append(out, snap)
	}
	return out, nil
}
