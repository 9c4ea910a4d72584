// Package healthstate implements the Health State Machine: a pure,
// deterministic function that classifies cluster health from primary
// signals. "Rules decide, AI explains" — no LLM, no I/O, no randomness,
// and no time-based behaviour beyond the caller-supplied counter is
// permitted anywhere in this package.
package healthstate

import "github.com/clusterhealth/copilot/internal/signal"

// ConsecutiveCriticalThreshold is how many consecutive evaluations
// must trip a critical gate before the state machine actually reports
// Critical. At a 30s observation cadence this is ~90s of sustained
// failure before the cluster is declared critical.
const ConsecutiveCriticalThreshold = 3

// Evaluate is the state machine's sole entry point: a pure function of
// (signals, current_state, consecutive_critical_count). It returns the
// new state and the counter the caller must persist and pass back on
// the next call. Evaluate performs no I/O and reads no clock; any
// apparent time-dependence (the debounce) is entirely a function of
// the counter the caller threads through.
func Evaluate(primary signal.Primary, current signal.HealthState, thresholds Thresholds, consecutiveCriticalCount int) (signal.HealthState, int) {
	// 1. Idle detector — highest priority, overrides everything else.
	if isIdle(primary) {
		return signal.Happy, 0
	}

	// 2. Critical gates, debounced.
	if isCritical(primary, thresholds.Critical) {
		count := consecutiveCriticalCount + 1
		if count >= ConsecutiveCriticalThreshold {
			return applyTransitionInvariant(current, signal.Critical), count
		}
		return applyTransitionInvariant(current, signal.Stressed), count
	}

	// Critical gates did not trip — the counter resets.
	count := 0

	// 3. Recovery hysteresis.
	if current == signal.Critical && isNearCritical(primary, thresholds.Critical) {
		return signal.Stressed, count
	}

	// 4. Stressed gates.
	if isStressed(primary, thresholds.Stressed) {
		return signal.Stressed, count
	}

	// 5. Healthy gates (all must hold).
	if isHealthy(primary, thresholds.Healthy) {
		return signal.Happy, count
	}

	// 6. Default: between thresholds, treat as Stressed.
	return signal.Stressed, count
}

// IsIdle reports whether p satisfies the idle detector (§4.1 step 1):
// near-zero throughput, near-zero errors, near-zero backlog. Exported
// for the read API, which must override a stale stored state to Happy
// whenever the current snapshot is idle, independent of running
// Evaluate itself.
func IsIdle(p signal.Primary) bool {
	return isIdle(p)
}

// isIdle reports whether the cluster has no meaningful work in
// flight: near-zero throughput, near-zero errors, near-zero backlog.
// This prevents a quiet cluster from reading as Critical.
func isIdle(p signal.Primary) bool {
	noThroughput := p.StateTransitions.ThroughputPerSec < 1.0 &&
		p.History.TaskProcessingRate < 1.0
	noErrors := p.Frontend.ErrorRatePerSec < 0.1 &&
		p.Persistence.ErrorRatePerSec < 0.1 &&
		p.WorkflowCompletion.FailedPerSec < 0.1
	noBacklog := p.History.BacklogAgeSec < 1.0 &&
		p.Matching.WorkflowBacklogAgeSec < 1.0 &&
		p.Matching.ActivityBacklogAgeSec < 1.0
	return noThroughput && noErrors && noBacklog
}

// isCritical reports whether any Critical gate trips.
func isCritical(p signal.Primary, t CriticalThresholds) bool {
	if p.StateTransitions.ThroughputPerSec < t.StateTransitionsMinPerSec {
		return true
	}

	// Demand-gated completion-rate check: only treat a low completion
	// ratio as a real problem once there is meaningful terminal volume,
	// so ramp-up (many starts, few completions yet) does not flap.
	totalTerminal := p.WorkflowCompletion.SuccessPerSec + p.WorkflowCompletion.FailedPerSec
	if totalTerminal >= t.DemandFloorPerSec && p.WorkflowCompletion.CompletionRate < t.CompletionRateMin {
		return true
	}

	if p.History.BacklogAgeSec > t.HistoryBacklogAgeMaxSec {
		return true
	}
	if p.History.TaskProcessingRate < t.HistoryProcessingRateMinPerSec {
		return true
	}
	return p.Persistence.ErrorRatePerSec > t.PersistenceErrorRateMaxPerSec
}

// isNearCritical reports whether signals are still within the
// 25-50% hysteresis margin above/below the Critical thresholds, used
// only when recovering from a current Critical state.
func isNearCritical(p signal.Primary, t CriticalThresholds) bool {
	if p.StateTransitions.ThroughputPerSec < t.StateTransitionsMinPerSec*1.5 {
		return true
	}
	if p.History.BacklogAgeSec > t.HistoryBacklogAgeMaxSec*0.75 {
		return true
	}
	return p.History.TaskProcessingRate < t.HistoryProcessingRateMinPerSec*1.5
}

// isStressed reports whether any Stressed gate trips.
func isStressed(p signal.Primary, t StressedThresholds) bool {
	if p.StateTransitions.LatencyP99Ms > t.StateTransitionLatencyP99MaxMs {
		return true
	}
	if p.History.BacklogAgeSec > t.HistoryBacklogAgeStressSec {
		return true
	}
	if p.Frontend.LatencyP99Ms > t.FrontendLatencyP99MaxMs {
		return true
	}
	if p.Persistence.LatencyP99Ms > t.PersistenceLatencyP99MaxMs {
		return true
	}
	if p.History.ShardChurnRatePerSec > t.ShardChurnRateMaxPerSec {
		return true
	}
	return p.Poller.PollTimeoutRate > t.PollerTimeoutRateMax
}

// isHealthy reports whether every Happy gate passes.
func isHealthy(p signal.Primary, t HealthyThresholds) bool {
	return p.StateTransitions.ThroughputPerSec >= t.StateTransitionsHealthyPerSec &&
		p.History.BacklogAgeSec <= t.HistoryBacklogAgeHealthySec &&
		p.WorkflowCompletion.CompletionRate >= t.CompletionRateHealthy
}

// applyTransitionInvariant forbids a direct Happy -> Critical jump:
// it must pass through Stressed first.
func applyTransitionInvariant(current, raw signal.HealthState) signal.HealthState {
	if current == signal.Happy && raw == signal.Critical {
		return signal.Stressed
	}
	return raw
}
