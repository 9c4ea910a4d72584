package workflowrt

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is cancelled, whichever comes first
// — the scaffold's timer primitive. The Observation Loop does not use
// it; Loop.Run paces itself with a time.Ticker.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
