package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
)

// HealthChecker pings a *sqlx.DB to verify the pool can still reach
// the store, for the read API's HTTP 503 degradation path (§7).
type HealthChecker struct {
	db *sqlx.DB
}

func NewHealthChecker(db *sqlx.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return copilotErrors.FailedToWithDetails("health check", "postgres", "", err)
	}
	return nil
}
