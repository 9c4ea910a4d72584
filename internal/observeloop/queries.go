package observeloop

import "github.com/clusterhealth/copilot/internal/signal"

// CurrentState is the read-only query surface §4.2 requires for
// diagnostic dashboards: current_state, window size, and the
// consecutive-critical counter.
type CurrentState struct {
	State               signal.HealthState
	WindowSize          int
	ConsecutiveCritical int
}

// Current returns the loop's in-memory state. Safe for concurrent use
// while Run is executing in another goroutine.
func (l *Loop) Current() CurrentState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return CurrentState{
		State:               l.state,
		WindowSize:          l.window,
		ConsecutiveCritical: l.counter,
	}
}
