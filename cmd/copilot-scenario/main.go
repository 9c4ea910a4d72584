// Command copilot-scenario drives the health state machine against
// synthetic signal fixtures, without a Temporal cluster or DSQL
// backend. It exists to let a developer exercise healthstate.Evaluate
// interactively the way the Python scenario scripts exercise a live
// cluster, only by generating signal.Primary values directly instead
// of by running real workflows against a Temporal frontend.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/clusterhealth/copilot/internal/healthstate"
	"github.com/clusterhealth/copilot/internal/signal"
)

func main() {
	scenario := flag.String("scenario", "error_injection", "scenario to run: error_injection, spike_load, stress_workflows")
	ticks := flag.Int("ticks", 20, "number of observation ticks to simulate")
	failurePct := flag.Int("failure-pct", 20, "error_injection: target failure percentage")
	baseRate := flag.Float64("base-rate", 5, "spike_load: calm-phase workflow rate")
	spikeRate := flag.Float64("spike-rate", 50, "spike_load: spike-phase workflow rate")
	seed := flag.Int64("seed", 1, "random seed for synthetic jitter")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	var series []signal.Primary
	switch *scenario {
	case "error_injection":
		series = errorInjectionSeries(*ticks, *failurePct, rng)
	case "spike_load":
		series = spikeLoadSeries(*ticks, *baseRate, *spikeRate, rng)
	case "stress_workflows":
		series = stressWorkflowsSeries(*ticks, rng)
	default:
		fmt.Fprintf(os.Stderr, "copilot-scenario: unknown scenario %q\n", *scenario)
		os.Exit(1)
	}

	runSeries(*scenario, series)
}

// runSeries feeds each Primary through the same Evaluate function the
// observation loop calls in production, printing the resulting state
// transitions as they would appear on a real cluster.
func runSeries(name string, series []signal.Primary) {
	thresholds := healthstate.DefaultThresholds()
	state := signal.Happy
	consecutiveCritical := 0

	fmt.Printf("scenario=%s ticks=%d\n", name, len(series))
	for i, primary := range series {
		var next signal.HealthState
		next, consecutiveCritical = healthstate.Evaluate(primary, state, thresholds, consecutiveCritical)
		changed := ""
		if next != state {
			changed = fmt.Sprintf(" (%s -> %s)", state, next)
		}
		state = next
		fmt.Printf("  tick=%02d completion_rate=%.2f error_rate=%.1f/s backlog=%.0fs state=%s%s\n",
			i, primary.WorkflowCompletion.CompletionRate, primary.Frontend.ErrorRatePerSec,
			primary.History.BacklogAgeSec, state, changed)
	}
	fmt.Printf("final state: %s\n", state)
}

func jitter(rng *rand.Rand, base, spread float64) float64 {
	return base + (rng.Float64()*2-1)*spread
}

// errorInjectionSeries mirrors error_injection.py: a constant failure
// percentage degrades the completion rate directly.
func errorInjectionSeries(ticks, failurePct int, rng *rand.Rand) []signal.Primary {
	completionRate := 1 - float64(failurePct)/100
	out := make([]signal.Primary, ticks)
	for i := range out {
		out[i] = signal.NewPrimary(signal.Primary{
			StateTransitions: signal.StateTransitionSignals{
				ThroughputPerSec: jitter(rng, 10, 2),
				LatencyP95Ms:     jitter(rng, 200, 50),
				LatencyP99Ms:     jitter(rng, 400, 80),
			},
			WorkflowCompletion: signal.WorkflowCompletionSignals{
				SuccessPerSec:  jitter(rng, 10*completionRate, 1),
				FailedPerSec:   jitter(rng, 10*(1-completionRate), 1),
				CompletionRate: clamp(jitter(rng, completionRate, 0.03)),
			},
			History: signal.HistorySignals{
				BacklogAgeSec:        jitter(rng, 5, 2),
				TaskProcessingRate:   jitter(rng, 50, 5),
				ShardChurnRatePerSec: jitter(rng, 0.1, 0.05),
			},
			Frontend: signal.FrontendSignals{
				ErrorRatePerSec: jitter(rng, float64(failurePct)/5, 1),
				LatencyP95Ms:    jitter(rng, 100, 20),
				LatencyP99Ms:    jitter(rng, 250, 40),
			},
			Matching: signal.MatchingSignals{
				WorkflowBacklogAgeSec: jitter(rng, 2, 1),
				ActivityBacklogAgeSec: jitter(rng, 2, 1),
			},
			Poller: signal.PollerSignals{
				PollTimeoutRate: clamp(jitter(rng, 0.01, 0.01)),
			},
			Persistence: signal.PersistenceSignals{
				LatencyP95Ms:    jitter(rng, 20, 5),
				LatencyP99Ms:    jitter(rng, 50, 10),
				ErrorRatePerSec: jitter(rng, 0.1, 0.05),
			},
		})
	}
	return out
}

// spikeLoadSeries mirrors spike_load.py: it alternates calm and spike
// phases, the latter driving up backlog age and latency while leaving
// the completion rate itself largely unaffected.
func spikeLoadSeries(ticks int, baseRate, spikeRate float64, rng *rand.Rand) []signal.Primary {
	out := make([]signal.Primary, ticks)
	for i := range out {
		inSpike := i%6 >= 3
		rate := baseRate
		backlog := 3.0
		latencyP95 := 150.0
		if inSpike {
			rate = spikeRate
			backlog = spikeRate / baseRate * 10
			latencyP95 = spikeRate / baseRate * 80
		}
		out[i] = signal.NewPrimary(signal.Primary{
			StateTransitions: signal.StateTransitionSignals{
				ThroughputPerSec: jitter(rng, rate, rate*0.1),
				LatencyP95Ms:     jitter(rng, latencyP95, latencyP95*0.2),
				LatencyP99Ms:     jitter(rng, latencyP95*1.8, latencyP95*0.3),
			},
			WorkflowCompletion: signal.WorkflowCompletionSignals{
				SuccessPerSec:  jitter(rng, rate*0.97, 1),
				FailedPerSec:   jitter(rng, rate*0.03, 1),
				CompletionRate: clamp(jitter(rng, 0.97, 0.02)),
			},
			History: signal.HistorySignals{
				BacklogAgeSec:        jitter(rng, backlog, backlog*0.2),
				TaskProcessingRate:   jitter(rng, rate*5, rate),
				ShardChurnRatePerSec: jitter(rng, 0.1, 0.05),
			},
			Frontend: signal.FrontendSignals{
				ErrorRatePerSec: jitter(rng, 0.2, 0.1),
				LatencyP95Ms:    jitter(rng, latencyP95*0.6, 20),
				LatencyP99Ms:    jitter(rng, latencyP95*1.1, 40),
			},
			Matching: signal.MatchingSignals{
				WorkflowBacklogAgeSec: jitter(rng, backlog*0.5, 2),
				ActivityBacklogAgeSec: jitter(rng, backlog*0.5, 2),
			},
			Poller: signal.PollerSignals{
				PollTimeoutRate: clamp(jitter(rng, 0.01, 0.01)),
			},
			Persistence: signal.PersistenceSignals{
				LatencyP95Ms:    jitter(rng, 20, 5),
				LatencyP99Ms:    jitter(rng, 50, 10),
				ErrorRatePerSec: jitter(rng, 0.1, 0.05),
			},
		})
	}
	return out
}

// stressWorkflowsSeries mirrors stress_workflows.py: a steady
// sustained rate meant to stay healthy throughout, used to confirm the
// evaluator does not false-positive under ordinary sustained load.
func stressWorkflowsSeries(ticks int, rng *rand.Rand) []signal.Primary {
	out := make([]signal.Primary, ticks)
	for i := range out {
		out[i] = signal.NewPrimary(signal.Primary{
			StateTransitions: signal.StateTransitionSignals{
				ThroughputPerSec: jitter(rng, 60, 3),
				LatencyP95Ms:     jitter(rng, 100, 15),
				LatencyP99Ms:     jitter(rng, 200, 25),
			},
			WorkflowCompletion: signal.WorkflowCompletionSignals{
				SuccessPerSec:  jitter(rng, 59.4, 1),
				FailedPerSec:   jitter(rng, 0.6, 0.1),
				CompletionRate: clamp(jitter(rng, 0.99, 0.005)),
			},
			History: signal.HistorySignals{
				BacklogAgeSec:        jitter(rng, 2, 0.5),
				TaskProcessingRate:   jitter(rng, 100, 10),
				ShardChurnRatePerSec: jitter(rng, 0.05, 0.02),
			},
			Frontend: signal.FrontendSignals{
				ErrorRatePerSec: jitter(rng, 0.1, 0.05),
				LatencyP95Ms:    jitter(rng, 60, 10),
				LatencyP99Ms:    jitter(rng, 120, 20),
			},
			Matching: signal.MatchingSignals{
				WorkflowBacklogAgeSec: jitter(rng, 1, 0.5),
				ActivityBacklogAgeSec: jitter(rng, 1, 0.5),
			},
			Poller: signal.PollerSignals{
				PollTimeoutRate: clamp(jitter(rng, 0.005, 0.005)),
			},
			Persistence: signal.PersistenceSignals{
				LatencyP95Ms:    jitter(rng, 15, 3),
				LatencyP99Ms:    jitter(rng, 30, 5),
				ErrorRatePerSec: jitter(rng, 0.05, 0.02),
			},
		})
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
