// Package workflowrt is a minimal in-process durable-workflow
// scaffold: fixed-id idempotent start, child workflows, retried
// activities, cancellable timers, and query handlers. No pack example
// imports a Temporal-like SDK, so this is built directly on
// goroutines, channels, and context — the primitives the teacher's own
// reconcile/poll/evaluate/act control loops are built on, generalized
// into something the Observation Loop and Assessment Pipeline can both
// run under.
package workflowrt

import (
	"context"
	"fmt"
	"sync"
)

// ConflictPolicy governs what Start does when a workflow with the
// requested id is already running.
type ConflictPolicy int

const (
	// UseExisting returns the already-running Handle instead of
	// starting a second instance — the default Temporal-style policy
	// for a fixed workflow id.
	UseExisting ConflictPolicy = iota
	// Reject fails the Start call outright if the id is in use.
	Reject
)

// Handle is a running (or completed) workflow instance.
type Handle struct {
	ID   string
	done chan struct{}
	err  error
}

// Wait blocks until the workflow completes or ctx is cancelled,
// returning the workflow's own error or ctx.Err().
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the workflow has finished.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ErrAlreadyRunning is returned by Start under Reject when id is busy.
type ErrAlreadyRunning struct{ ID string }

func (e *ErrAlreadyRunning) Error() string {
	return fmt.Sprintf("workflowrt: workflow %q is already running", e.ID)
}

// Runtime tracks running workflow instances by id and the query
// handlers they expose.
type Runtime struct {
	mu        sync.Mutex
	running   map[string]*Handle
	queries   map[string]map[string]func() any
}

// New returns an empty Runtime.
func New() *Runtime {
	return &Runtime{
		running: make(map[string]*Handle),
		queries: make(map[string]map[string]func() any),
	}
}

// Start launches fn under workflow id, honoring policy if id is
// already running. The workflow's own completion removes it from the
// registry so a later Start with the same id is free to run again —
// this is fixed-id idempotency for the lifetime of one run, not a
// permanent reservation.
func (r *Runtime) Start(ctx context.Context, id string, policy ConflictPolicy, fn func(context.Context) error) (*Handle, error) {
	r.mu.Lock()
	if existing, ok := r.running[id]; ok {
		r.mu.Unlock()
		if policy == Reject {
			return nil, &ErrAlreadyRunning{ID: id}
		}
		return existing, nil
	}

	h := &Handle{ID: id, done: make(chan struct{})}
	r.running[id] = h
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			if r.running[id] == h {
				delete(r.running, id)
			}
			r.mu.Unlock()
			close(h.done)
		}()
		h.err = fn(ctx)
	}()

	return h, nil
}

// StartChild is Start with child-workflow naming conventions — it
// exists as a distinct name so call sites read the way §4.2's
// "start_child" pseudocode does; the mechanics are identical to Start.
func (r *Runtime) StartChild(ctx context.Context, parentID, childID string, policy ConflictPolicy, fn func(context.Context) error) (*Handle, error) {
	return r.Start(ctx, parentID+"/"+childID, policy, fn)
}
