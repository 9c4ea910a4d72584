package redisstate

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
	"github.com/clusterhealth/copilot/internal/signal"
)

// CurrentState is the Observation Loop's cached state entry: the state
// and debounce counter the loop last recorded.
type CurrentState struct {
	State   signal.HealthState
	Counter int
}

// SetCurrentState writes loopID's current state and counter; the loop
// calls it on every state update and CurrentStateOf reads it back. The
// loop's boot-time reconciliation and its current_state query do not
// read this entry.
func (c *Client) SetCurrentState(ctx context.Context, loopID string, s CurrentState) error {
	value := string(s.State) + "|" + strconv.Itoa(s.Counter)
	if err := c.rdb.Set(ctx, stateKey(loopID), value, 0).Err(); err != nil {
		return copilotErrors.FailedToWithDetails("write current state", "redisstate", loopID, err)
	}
	return nil
}

// CurrentStateOf fetches loopID's cached state, returning ok=false
// (not an error) when no entry has been written yet.
func (c *Client) CurrentStateOf(ctx context.Context, loopID string) (CurrentState, bool, error) {
	value, err := c.rdb.Get(ctx, stateKey(loopID)).Result()
	if errors.Is(err, redis.Nil) {
		return CurrentState{}, false, nil
	}
	if err != nil {
		return CurrentState{}, false, copilotErrors.FailedToWithDetails("read current state", "redisstate", loopID, err)
	}

	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return CurrentState{}, false, copilotErrors.FailedToWithDetails("parse current state", "redisstate", loopID,
			errors.New("malformed cache entry"))
	}
	counter, err := strconv.Atoi(parts[1])
	if err != nil {
		return CurrentState{}, false, copilotErrors.FailedToWithDetails("parse current state counter", "redisstate", loopID, err)
	}
	return CurrentState{State: signal.HealthState(parts[0]), Counter: counter}, true, nil
}
