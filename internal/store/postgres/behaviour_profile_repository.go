package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
)

// BehaviourProfileRepository persists the behaviour_profiles metadata
// row used for listing and filtering (§6); the profile's full JSON
// body is written separately to the object store, keyed by s3_key.
type BehaviourProfileRepository struct {
	db *sqlx.DB
}

func NewBehaviourProfileRepository(db *sqlx.DB) *BehaviourProfileRepository {
	return &BehaviourProfileRepository{db: db}
}

// ProfileMetadata is the behaviour_profiles row shape: everything
// worth filtering/listing on without fetching the full profile body.
type ProfileMetadata struct {
	ID              string
	Name            string
	Label           string
	ClusterID       string
	Namespace       string
	TaskQueue       string
	TimeWindowStart time.Time
	TimeWindowEnd   time.Time
	S3Key           string
	IsBaseline      bool
	CreatedAt       time.Time
}

// MetadataFromProfile extracts a row's worth of metadata from a full
// profile plus the object-store key its body was written under.
func MetadataFromProfile(p behaviourprofile.BehaviourProfile, s3Key string) ProfileMetadata {
	return ProfileMetadata{
		ID:              p.ID,
		Name:            p.Name,
		Label:           p.Label,
		ClusterID:       p.ClusterID,
		Namespace:       p.Namespace,
		TaskQueue:       p.TaskQueue,
		TimeWindowStart: p.TimeWindowStart,
		TimeWindowEnd:   p.TimeWindowEnd,
		S3Key:           s3Key,
		IsBaseline:      p.IsBaseline,
		CreatedAt:       p.CreatedAt,
	}
}

// Create inserts a metadata row. IsBaseline is always inserted false;
// use SetBaseline to designate a baseline, so the atomic clear-and-set
// invariant has exactly one code path.
func (r *BehaviourProfileRepository) Create(ctx context.Context, m ProfileMetadata) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO behaviour_profiles
			(id, name, label, cluster_id, namespace, task_queue, time_window_start, time_window_end, s3_key, is_baseline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10)`,
		m.ID, m.Name, nullableString(m.Label), m.ClusterID, nullableString(m.Namespace),
		nullableString(m.TaskQueue), m.TimeWindowStart, m.TimeWindowEnd, m.S3Key, m.CreatedAt,
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("insert", "postgres", "behaviour_profiles", err)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SetBaseline designates profileID as the sole baseline for
// (clusterID, namespace): clearing whatever profile previously carried
// is_baseline=true for that pair and setting it on profileID, inside a
// single transaction. Exactly one profile per (cluster_id, namespace)
// may carry is_baseline=true at any time (§3).
func (r *BehaviourProfileRepository) SetBaseline(ctx context.Context, clusterID, namespace, profileID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return copilotErrors.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE behaviour_profiles
		SET is_baseline = false
		WHERE cluster_id = $1 AND namespace IS NOT DISTINCT FROM $2 AND is_baseline = true`,
		clusterID, nullableString(namespace),
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("clear previous baseline", "postgres", "behaviour_profiles", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE behaviour_profiles
		SET is_baseline = true
		WHERE id = $1`,
		profileID,
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("set new baseline", "postgres", "behaviour_profiles", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return copilotErrors.FailedToWithDetails("set new baseline", "postgres", "behaviour_profiles",
			errors.New("no row with the given id"))
	}

	if err := tx.Commit(); err != nil {
		return copilotErrors.DatabaseError("commit transaction", err)
	}
	return nil
}

type profileMetadataRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Label           sql.NullString `db:"label"`
	ClusterID       string         `db:"cluster_id"`
	Namespace       sql.NullString `db:"namespace"`
	TaskQueue       sql.NullString `db:"task_queue"`
	TimeWindowStart time.Time      `db:"time_window_start"`
	TimeWindowEnd   time.Time      `db:"time_window_end"`
	S3Key           string         `db:"s3_key"`
	IsBaseline      bool           `db:"is_baseline"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (row profileMetadataRow) toMetadata() ProfileMetadata {
	return ProfileMetadata{
		ID:              row.ID,
		Name:            row.Name,
		Label:           row.Label.String,
		ClusterID:       row.ClusterID,
		Namespace:       row.Namespace.String,
		TaskQueue:       row.TaskQueue.String,
		TimeWindowStart: row.TimeWindowStart,
		TimeWindowEnd:   row.TimeWindowEnd,
		S3Key:           row.S3Key,
		IsBaseline:      row.IsBaseline,
		CreatedAt:       row.CreatedAt,
	}
}

// Baseline fetches the current baseline metadata row for
// (clusterID, namespace), if one exists.
func (r *BehaviourProfileRepository) Baseline(ctx context.Context, clusterID, namespace string) (*ProfileMetadata, error) {
	var row profileMetadataRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, label, cluster_id, namespace, task_queue, time_window_start, time_window_end, s3_key, is_baseline, created_at
		FROM behaviour_profiles
		WHERE cluster_id = $1 AND namespace IS NOT DISTINCT FROM $2 AND is_baseline = true`,
		clusterID, nullableString(namespace),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("query baseline", "postgres", "behaviour_profiles", err)
	}
	m := row.toMetadata()
	return &m, nil
}

// List fetches every profile metadata row for clusterID ordered by
// creation time, newest first.
func (r *BehaviourProfileRepository) List(ctx context.Context, clusterID string) ([]ProfileMetadata, error) {
	var rows []profileMetadataRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, label, cluster_id, namespace, task_queue, time_window_start, time_window_end, s3_key, is_baseline, created_at
		FROM behaviour_profiles
		WHERE cluster_id = $1
		ORDER BY created_at DESC`, clusterID)
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("query list", "postgres", "behaviour_profiles", err)
	}

	out := make([]ProfileMetadata, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMetadata())
	}
	return out, nil
}
