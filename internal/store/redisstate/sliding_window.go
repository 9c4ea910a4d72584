package redisstate

import (
	"context"
	"encoding/json"

	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
	"github.com/clusterhealth/copilot/internal/signal"
)

// AppendSnapshot pushes snapshot onto loopID's sliding window and
// trims it to WindowCap, newest first. The push and trim happen as
// two calls against a single Redis connection rather than a pipeline
// or Lua script: a torn write here only ever leaves the window briefly
// over-long, which the next tick's trim corrects, so the stronger
// atomicity a pipeline would buy isn't worth the complexity.
func (c *Client) AppendSnapshot(ctx context.Context, loopID string, snapshot signal.Snapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode snapshot", "redisstate", loopID, err)
	}

	key := windowKey(loopID)
	if err := c.rdb.LPush(ctx, key, body).Err(); err != nil {
		return copilotErrors.FailedToWithDetails("push snapshot", "redisstate", loopID, err)
	}
	if err := c.rdb.LTrim(ctx, key, 0, WindowCap-1).Err(); err != nil {
		return copilotErrors.FailedToWithDetails("trim window", "redisstate", loopID, err)
	}
	return nil
}

// WindowSize reports how many snapshots loopID's window currently
// holds (0..WindowCap).
func (c *Client) WindowSize(ctx context.Context, loopID string) (int, error) {
	n, err := c.rdb.LLen(ctx, windowKey(loopID)).Result()
	if err != nil {
		return 0, copilotErrors.FailedToWithDetails("read window size", "redisstate", loopID, err)
	}
	return int(n), nil
}

// Window returns loopID's sliding window, newest snapshot first.
func (c *Client) Window(ctx context.Context, loopID string) ([]signal.Snapshot, error) {
	raw, err := c.rdb.LRange(ctx, windowKey(loopID), 0, -1).Result()
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("read window", "redisstate", loopID, err)
	}

	out := make([]signal.Snapshot, 0, len(raw))
	for _, body := range raw {
		var snap signal.Snapshot
		if err := json.Unmarshal([]byte(body), &snap); err != nil {
			return nil, copilotErrors.FailedToWithDetails("decode snapshot", "redisstate", loopID, err)
		}
		out = append(out, snap)
	}
	return out, nil
}
