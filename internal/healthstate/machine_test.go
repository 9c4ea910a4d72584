package healthstate

import (
	"testing"

	"github.com/clusterhealth/copilot/internal/signal"
)

func zeroPrimary() signal.Primary {
	return signal.Primary{}
}

func TestEvaluate_Determinism(t *testing.T) {
	p := signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{ThroughputPerSec: 100},
		History:          signal.HistorySignals{TaskProcessingRate: 100, BacklogAgeSec: 1},
		WorkflowCompletion: signal.WorkflowCompletionSignals{
			SuccessPerSec: 90, FailedPerSec: 5, CompletionRate: 0.95,
		},
	})
	thresholds := DefaultThresholds()

	s1, c1 := Evaluate(p, signal.Happy, thresholds, 0)
	s2, c2 := Evaluate(p, signal.Happy, thresholds, 0)

	if s1 != s2 || c1 != c2 {
		t.Fatalf("Evaluate is not deterministic: (%v,%v) != (%v,%v)", s1, c1, s2, c2)
	}
}

func TestEvaluate_NoDirectHappyToCritical(t *testing.T) {
	// Signals that would be Critical outright.
	p := signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{ThroughputPerSec: 0},
		History:          signal.HistorySignals{BacklogAgeSec: 500, TaskProcessingRate: 0},
	})
	thresholds := DefaultThresholds()

	for k := 0; k < 10; k++ {
		state, _ := Evaluate(p, signal.Happy, thresholds, k)
		if state == signal.Critical {
			t.Fatalf("Happy->Critical in one step at counter=%d", k)
		}
	}
}

func TestEvaluate_Debounce(t *testing.T) {
	thresholds := DefaultThresholds()
	// throughput 1/s, critical floor is 10/s.
	p := signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{ThroughputPerSec: 1},
		History:          signal.HistorySignals{TaskProcessingRate: 100},
	})

	state := signal.Stressed
	count := 0
	for i := 1; i <= ConsecutiveCriticalThreshold; i++ {
		state, count = Evaluate(p, state, thresholds, count)
		if i < ConsecutiveCriticalThreshold && state == signal.Critical {
			t.Fatalf("went Critical early at call %d", i)
		}
	}
	if state != signal.Critical || count != ConsecutiveCriticalThreshold {
		t.Fatalf("after %d consecutive critical calls: got (%v,%d), want (Critical,%d)",
			ConsecutiveCriticalThreshold, state, count, ConsecutiveCriticalThreshold)
	}

	// A single non-critical call in between resets the counter to 0.
	healthy := signal.NewPrimary(signal.Primary{
		StateTransitions:   signal.StateTransitionSignals{ThroughputPerSec: 100},
		History:            signal.HistorySignals{TaskProcessingRate: 100, BacklogAgeSec: 1},
		WorkflowCompletion: signal.WorkflowCompletionSignals{SuccessPerSec: 99, FailedPerSec: 1, CompletionRate: 0.99},
	})
	_, resetCount := Evaluate(healthy, signal.Stressed, thresholds, 2)
	if resetCount != 0 {
		t.Fatalf("non-critical call should reset counter to 0, got %d", resetCount)
	}
}

func TestEvaluate_IdleDetection(t *testing.T) {
	thresholds := DefaultThresholds()

	state, count := Evaluate(zeroPrimary(), signal.Critical, thresholds, 7)
	if state != signal.Happy || count != 0 {
		t.Fatalf("all-zero signal should yield (Happy,0) from any start, got (%v,%d)", state, count)
	}

	withFailures := signal.NewPrimary(signal.Primary{
		WorkflowCompletion: signal.WorkflowCompletionSignals{FailedPerSec: 5},
	})
	state, _ = Evaluate(withFailures, signal.Happy, thresholds, 0)
	if state == signal.Happy {
		t.Fatalf("failed_per_sec=5 must not satisfy idle detection, got Happy")
	}
}

func TestIsIdle_MatchesEvaluateIdleDetection(t *testing.T) {
	if !IsIdle(zeroPrimary()) {
		t.Fatal("expected the all-zero signal to report idle")
	}
	withFailures := signal.NewPrimary(signal.Primary{
		WorkflowCompletion: signal.WorkflowCompletionSignals{FailedPerSec: 5},
	})
	if IsIdle(withFailures) {
		t.Fatal("expected failed_per_sec=5 to report non-idle")
	}
}

func TestValidateOrdering(t *testing.T) {
	if err := DefaultThresholds().ValidateOrdering(); err != nil {
		t.Fatalf("default thresholds must satisfy ordering invariant: %v", err)
	}

	bad := DefaultThresholds()
	bad.Stressed.HistoryBacklogAgeStressSec = bad.Critical.HistoryBacklogAgeMaxSec + 1
	if err := bad.ValidateOrdering(); err == nil {
		t.Fatal("expected ordering violation to be detected")
	}
}

func TestEvaluate_AmplifiersHaveNoInfluence(t *testing.T) {
	// The property follows from Evaluate's signature: it does not
	// accept an Amplifier at all, so there is nothing to vary here
	// except to document the guarantee at the type level.
	var _ func(signal.Primary, signal.HealthState, Thresholds, int) (signal.HealthState, int) = Evaluate
}

// Scenario A: ramp-up is not Critical.
func TestScenarioA_RampUpIsNotCritical(t *testing.T) {
	p := signal.NewPrimary(signal.Primary{
		StateTransitions:   signal.StateTransitionSignals{ThroughputPerSec: 100},
		WorkflowCompletion: signal.WorkflowCompletionSignals{SuccessPerSec: 2, FailedPerSec: 0, CompletionRate: 0.2},
		History:            signal.HistorySignals{BacklogAgeSec: 5, TaskProcessingRate: 100},
	})
	// total_terminal = 2/sec (success + failed), below the default
	// demand floor of 5.0, so the completion-rate gate stays off despite
	// the completion_rate of 0.2; throughput/backlog/processing are all
	// healthy, so ramp-up with 100 transitions/s and 2 completions/s
	// must not be Critical.
	state, _ := Evaluate(p, signal.Stressed, DefaultThresholds(), 0)
	if state == signal.Critical {
		t.Fatalf("ramp-up scenario must not be Critical immediately, got %v", state)
	}
}

// Scenario B: sustained collapse triggers Critical from Stressed.
func TestScenarioB_SustainedCollapse(t *testing.T) {
	thresholds := DefaultThresholds()
	p := signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{ThroughputPerSec: 1}, // floor is 10
		History:          signal.HistorySignals{TaskProcessingRate: 100},
	})

	state, count := signal.Stressed, 0
	for i := 0; i < 3; i++ {
		state, count = Evaluate(p, state, thresholds, count)
	}
	if state != signal.Critical || count != 3 {
		t.Fatalf("expected (Critical,3) after 3 calls, got (%v,%d)", state, count)
	}
}

// Scenario C: invariant blocks sudden Critical.
func TestScenarioC_InvariantBlocksSuddenCritical(t *testing.T) {
	p := signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{ThroughputPerSec: 0},
		History:          signal.HistorySignals{BacklogAgeSec: 500},
	})
	state, count := Evaluate(p, signal.Happy, DefaultThresholds(), 10)
	if state != signal.Stressed || count != 11 {
		t.Fatalf("expected (Stressed,11), got (%v,%d)", state, count)
	}
}

func TestClassifyBottleneck(t *testing.T) {
	tests := []struct {
		name string
		p    signal.Primary
		w    signal.WorkerSignal
		want Bottleneck
	}{
		{
			name: "healthy",
			p:    signal.Primary{},
			w:    signal.WorkerSignal{WorkflowSlotsAvailable: 10, ActivitySlotsAvailable: 10},
			want: BottleneckHealthy,
		},
		{
			name: "worker limited via zero slots",
			p:    signal.Primary{},
			w:    signal.WorkerSignal{WorkflowSlotsAvailable: 0, ActivitySlotsAvailable: 5},
			want: BottleneckWorkerLimited,
		},
		{
			name: "worker limited via schedule-to-start",
			p:    signal.Primary{},
			w:    signal.WorkerSignal{WorkflowSlotsAvailable: 5, ActivitySlotsAvailable: 5, ScheduleToStartP95Ms: 75},
			want: BottleneckWorkerLimited,
		},
		{
			name: "server limited via backlog",
			p:    signal.Primary{History: signal.HistorySignals{BacklogAgeSec: 45}},
			w:    signal.WorkerSignal{WorkflowSlotsAvailable: 5, ActivitySlotsAvailable: 5},
			want: BottleneckServerLimited,
		},
		{
			name: "mixed",
			p:    signal.Primary{History: signal.HistorySignals{BacklogAgeSec: 45}},
			w:    signal.WorkerSignal{WorkflowSlotsAvailable: 0, ActivitySlotsAvailable: 5},
			want: BottleneckMixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyBottleneck(tt.p, tt.w, DefaultBottleneckThresholds())
			if got != tt.want {
				t.Errorf("ClassifyBottleneck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateScalingRules(t *testing.T) {
	t.Run("never scale down at zero", func(t *testing.T) {
		w := signal.WorkerSignal{WorkflowSlotsAvailable: 0, ActivitySlotsAvailable: 5}
		warnings := EvaluateScalingRules(w, ScaleDown, ScalingContext{})
		if !hasRule(warnings, "NEVER_SCALE_DOWN_AT_ZERO") {
			t.Error("expected NEVER_SCALE_DOWN_AT_ZERO warning")
		}
	})

	t.Run("sticky queue warning", func(t *testing.T) {
		w := signal.WorkerSignal{WorkflowSlotsAvailable: 5, ActivitySlotsAvailable: 5}
		warnings := EvaluateScalingRules(w, ScaleUp, ScalingContext{HasLongRunningWorkflows: true})
		if !hasRule(warnings, "STICKY_QUEUE_WARNING") {
			t.Error("expected STICKY_QUEUE_WARNING")
		}
	})

	t.Run("restart to redistribute", func(t *testing.T) {
		w := signal.WorkerSignal{WorkflowSlotsAvailable: 5, ActivitySlotsAvailable: 5, StickyCacheHitRate: 0.2}
		warnings := EvaluateScalingRules(w, ScaleUp, ScalingContext{WorkerReplicaCount: 10})
		if !hasRule(warnings, "RESTART_TO_REDISTRIBUTE") {
			t.Error("expected RESTART_TO_REDISTRIBUTE")
		}
	})

	t.Run("poller executor mismatch", func(t *testing.T) {
		w := signal.WorkerSignal{
			WorkflowSlotsAvailable: 5, ActivitySlotsAvailable: 5,
			TotalPollers: 20, TotalSlots: 10,
		}
		warnings := EvaluateScalingRules(w, ScaleUp, ScalingContext{})
		if !hasRule(warnings, "POLLER_EXECUTOR_MISMATCH") {
			t.Error("expected POLLER_EXECUTOR_MISMATCH")
		}
	})
}

func hasRule(warnings []ScalingWarning, rule string) bool {
	for _, w := range warnings {
		if w.Rule == rule {
			return true
		}
	}
	return false
}
