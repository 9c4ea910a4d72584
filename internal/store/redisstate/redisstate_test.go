package redisstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clusterhealth/copilot/internal/signal"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(rdb)
}

func TestAppendSnapshot_TrimsToWindowCap(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < WindowCap+5; i++ {
		snap := signal.Snapshot{Timestamp: time.Now().Add(time.Duration(i) * time.Second)}
		if err := c.AppendSnapshot(ctx, "loop-1", snap); err != nil {
			t.Fatalf("unexpected error on append %d: %v", i, err)
		}
	}

	size, err := c.WindowSize(ctx, "loop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != WindowCap {
		t.Fatalf("expected window capped at %d, got %d", WindowCap, size)
	}
}

func TestWindow_NewestFirst(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first := signal.Snapshot{Timestamp: time.Unix(1000, 0)}
	second := signal.Snapshot{Timestamp: time.Unix(2000, 0)}
	if err := c.AppendSnapshot(ctx, "loop-2", first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AppendSnapshot(ctx, "loop-2", second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	window, err := c.Window(ctx, "loop-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(window))
	}
	if !window[0].Timestamp.Equal(second.Timestamp) {
		t.Fatalf("expected newest snapshot first, got %v", window[0].Timestamp)
	}
}

func TestCurrentState_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if err := c.SetCurrentState(ctx, "loop-3", CurrentState{State: signal.Stressed, Counter: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := c.CurrentStateOf(ctx, "loop-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a cached entry")
	}
	if got.State != signal.Stressed || got.Counter != 2 {
		t.Fatalf("expected Stressed/2, got %v/%d", got.State, got.Counter)
	}
}

func TestCurrentStateOf_MissingEntryReturnsNotOK(t *testing.T) {
	c := newTestClient(t)
	_, ok, err := c.CurrentStateOf(context.Background(), "never-written")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a never-written loop id")
	}
}

func TestShouldScheduleAssessment_DeduplicatesWithinWindow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first, err := c.ShouldScheduleAssessment(ctx, "cluster-a", DefaultDedupWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected the first claim to succeed")
	}

	second, err := c.ShouldScheduleAssessment(ctx, "cluster-a", DefaultDedupWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Fatal("expected the second claim within the dedup window to be rejected")
	}
}

func TestShouldScheduleAssessment_DistinctKeysDoNotCollide(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	a, err := c.ShouldScheduleAssessment(ctx, "cluster-a", DefaultDedupWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.ShouldScheduleAssessment(ctx, "cluster-b", DefaultDedupWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a || !b {
		t.Fatal("expected independent dedup keys to both succeed")
	}
}
