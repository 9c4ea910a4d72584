package workflowrt

import "fmt"

// RegisterQuery exposes a read-only handler under workflowID/name, the
// scaffold's equivalent of a workflow's query handlers (§4.2's
// "current_state", "window_size", "consecutive_critical_count").
func (r *Runtime) RegisterQuery(workflowID, name string, handler func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queries[workflowID] == nil {
		r.queries[workflowID] = make(map[string]func() any)
	}
	r.queries[workflowID][name] = handler
}

// Query invokes a previously registered handler.
func (r *Runtime) Query(workflowID, name string) (any, error) {
	r.mu.Lock()
	handlers, ok := r.queries[workflowID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("workflowrt: no queries registered for workflow %q", workflowID)
	}
	handler, ok := handlers[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("workflowrt: workflow %q has no query %q", workflowID, name)
	}
	return handler(), nil
}

// UnregisterQueries removes all query handlers for workflowID, called
// when a workflow instance is torn down so stale handlers don't answer
// for a no-longer-running instance.
func (r *Runtime) UnregisterQueries(workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queries, workflowID)
}
