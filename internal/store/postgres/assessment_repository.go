package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clusterhealth/copilot/internal/assessment"
	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
	"github.com/clusterhealth/copilot/internal/signal"
)

// AssessmentRepository persists health_assessments rows and their
// child issues rows. An assessment's issues are written once, inside
// the same transaction as the parent row — per §3, assessments are
// append-only and never updated after creation.
type AssessmentRepository struct {
	db *sqlx.DB
}

func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

type signalsEnvelope struct {
	Primary   signal.Primary      `json:"primary"`
	Amplifier signal.Amplifier    `json:"amplifier"`
	Logs      []signal.LogPattern `json:"logs"`
}

// Create inserts a.into health_assessments and one row per issue into
// issues, in a single transaction, and assigns a.ID if it is empty.
func (r *AssessmentRepository) Create(ctx context.Context, a *assessment.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	services, err := json.Marshal(signalsEnvelope{
		Primary:   a.PrimarySnapshot,
		Amplifier: a.AmplifierSnapshot,
		Logs:      a.Logs,
	})
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode services snapshot", "postgres", "health_assessments", err)
	}
	issuesJSON, err := json.Marshal(a.Issues)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode issues", "postgres", "health_assessments", err)
	}
	metricsSnapshot, err := json.Marshal(a.PrimarySnapshot)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode metrics snapshot", "postgres", "health_assessments", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return copilotErrors.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO health_assessments
			(id, timestamp, trigger, overall_status, services, issues, natural_language_summary, metrics_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Timestamp, string(a.Trigger), string(a.State), services, issuesJSON, a.Summary, metricsSnapshot,
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("insert", "postgres", "health_assessments", err)
	}

	for i := range a.Issues {
		issue := &a.Issues[i]
		if issue.ID == "" {
			issue.ID = uuid.New().String()
		}
		issue.AssessmentID = a.ID
		if err := insertIssue(ctx, tx, issue); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return copilotErrors.DatabaseError("commit transaction", err)
	}
	return nil
}

func insertIssue(ctx context.Context, tx *sqlx.Tx, issue *assessment.Issue) error {
	actions, err := json.Marshal(issue.SuggestedActions)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode suggested actions", "postgres", "issues", err)
	}
	related, err := json.Marshal(issue.RelatedMetrics)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode related metrics", "postgres", "issues", err)
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO issues
			(id, assessment_id, severity, title, description, likely_cause, suggested_actions, related_metrics, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		issue.ID, issue.AssessmentID, string(issue.Severity), issue.Title, issue.Description,
		issue.LikelyCause, actions, related, issue.CreatedAt, issue.ResolvedAt,
	)
	if err != nil {
		return copilotErrors.FailedToWithDetails("insert", "postgres", "issues", err)
	}
	return nil
}

type assessmentRow struct {
	ID                      string    `db:"id"`
	Timestamp               time.Time `db:"timestamp"`
	Trigger                 string    `db:"trigger"`
	OverallStatus           string    `db:"overall_status"`
	Services                []byte    `db:"services"`
	Issues                  []byte    `db:"issues"`
	NaturalLanguageSummary  string    `db:"natural_language_summary"`
	MetricsSnapshot         []byte    `db:"metrics_snapshot"`
}

// Latest fetches the most recently persisted assessment, used by the
// Observation Loop's boot-time reconciliation step. Returns
// (nil, nil) when the table is empty — reconciliation treats that as
// "start at Happy", not an error.
func (r *AssessmentRepository) Latest(ctx context.Context) (*assessment.Assessment, error) {
	var row assessmentRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, timestamp, trigger, overall_status, services, issues, natural_language_summary, metrics_snapshot
		FROM health_assessments
		ORDER BY timestamp DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("query latest", "postgres", "health_assessments", err)
	}
	return rowToAssessment(row)
}

// Recent fetches the limit most recently persisted assessments, newest
// first — the read API's `/status/timeline` projection.
func (r *AssessmentRepository) Recent(ctx context.Context, limit int) ([]*assessment.Assessment, error) {
	var rows []assessmentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, timestamp, trigger, overall_status, services, issues, natural_language_summary, metrics_snapshot
		FROM health_assessments
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("query recent", "postgres", "health_assessments", err)
	}

	out := make([]*assessment.Assessment, 0, len(rows))
	for _, row := range rows {
		a, err := rowToAssessment(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func rowToAssessment(row assessmentRow) (*assessment.Assessment, error) {
	var env signalsEnvelope
	if err := json.Unmarshal(row.Services, &env); err != nil {
		return nil, copilotErrors.FailedToWithDetails("decode services snapshot", "postgres", "health_assessments", err)
	}
	var issues []assessment.Issue
	if err := json.Unmarshal(row.Issues, &issues); err != nil {
		return nil, copilotErrors.FailedToWithDetails("decode issues", "postgres", "health_assessments", err)
	}

	return &assessment.Assessment{
		ID:                row.ID,
		Timestamp:         row.Timestamp,
		Trigger:           assessment.Trigger(row.Trigger),
		State:             signal.HealthState(row.OverallStatus),
		PrimarySnapshot:   env.Primary,
		AmplifierSnapshot: env.Amplifier,
		Logs:              env.Logs,
		Summary:           row.NaturalLanguageSummary,
		Issues:            issues,
	}, nil
}
