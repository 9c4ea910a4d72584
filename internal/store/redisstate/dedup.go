package redisstate

import (
	"context"
	"time"

	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
)

// ShouldScheduleAssessment reports whether a scheduled assessment for
// key may proceed: true if no assessment was scheduled under key
// within window, in which case this call also claims the window so
// the next caller within it is deduplicated. Uses SetNX so the
// claim-and-check is a single atomic Redis operation — no race between
// two workers deciding to schedule the same assessment.
func (c *Client) ShouldScheduleAssessment(ctx context.Context, key string, window time.Duration) (bool, error) {
	claimed, err := c.rdb.SetNX(ctx, dedupKey(key), time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, copilotErrors.FailedToWithDetails("claim dedup window", "redisstate", key, err)
	}
	return claimed, nil
}
