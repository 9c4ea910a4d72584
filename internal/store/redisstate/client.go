// Package redisstate implements the copilot's Redis-backed state:
// the Observation Loop's sliding signal window (cap 10), its
// current-state reconciliation cache, and the scheduled-assessment
// deduplication window (≥4 minutes by default, §5).
package redisstate

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a redis.Client with the key conventions this package's
// sub-stores use.
type Client struct {
	rdb *redis.Client
}

// New builds a Client against a Redis instance reachable at addr.
func New(addr string) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewFromClient wraps an already-constructed redis.Client, primarily
// for tests that point at a miniredis instance.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func windowKey(loopID string) string {
	return "copilot:window:" + loopID
}

func stateKey(loopID string) string {
	return "copilot:state:" + loopID
}

func dedupKey(key string) string {
	return "copilot:dedup:" + key
}

// DefaultDedupWindow is the minimum spacing between scheduled
// assessments for the same dedup key, per §5.
const DefaultDedupWindow = 4 * time.Minute

// WindowCap bounds the sliding signal window the Observation Loop
// keeps per its fixed workflow id (§4.2).
const WindowCap = 10
