// Package prompt renders the triage and deep narrator prompts from
// typed signal values. "Rules decide, the narrator explains" — these
// templates never ask the model to choose a health state; the state
// is always handed in as a fact the model must not contradict.
//
// No prompt-builder body survived retrieval for either agent
// (dispatcher.py and researcher.py both kept only their imports and
// docstrings), so these templates are built by analogy to the
// retrieved docstrings' stated contract ("dispatcher decides
// explanation depth, not health state"; "researcher explains with RAG
// context") rather than transcribed from an observed original.
package prompt

import (
	"fmt"
	"strings"

	"github.com/clusterhealth/copilot/internal/signal"
)

// Triage renders the cheap narrator's prompt: state, trigger, and a
// compact summary of the primary and amplifier signals. The model is
// asked to return one of three tagged outcomes.
func Triage(state signal.HealthState, p signal.Primary, a signal.Amplifier, trigger string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cluster health state: %s (trigger: %s)\n\n", state, trigger)
	b.WriteString("This state has already been decided by deterministic rules. ")
	b.WriteString("Your job is only to decide how much explanation it needs, not to second-guess it.\n\n")
	b.WriteString("Primary signals:\n")
	fmt.Fprintf(&b, "  state-transition throughput: %.2f/s, p95/p99 latency: %.1f/%.1f ms\n",
		p.StateTransitions.ThroughputPerSec, p.StateTransitions.LatencyP95Ms, p.StateTransitions.LatencyP99Ms)
	fmt.Fprintf(&b, "  workflow completion: %.2f/s success, %.2f/s failed, rate %.2f\n",
		p.WorkflowCompletion.SuccessPerSec, p.WorkflowCompletion.FailedPerSec, p.WorkflowCompletion.CompletionRate)
	fmt.Fprintf(&b, "  history backlog age: %.1f s, processing rate: %.2f/s\n",
		p.History.BacklogAgeSec, p.History.TaskProcessingRate)
	fmt.Fprintf(&b, "  frontend error rate: %.2f/s, p95/p99 latency: %.1f/%.1f ms\n",
		p.Frontend.ErrorRatePerSec, p.Frontend.LatencyP95Ms, p.Frontend.LatencyP99Ms)
	fmt.Fprintf(&b, "  persistence p95/p99 latency: %.1f/%.1f ms, error rate: %.2f/s\n",
		p.Persistence.LatencyP95Ms, p.Persistence.LatencyP99Ms, p.Persistence.ErrorRatePerSec)

	b.WriteString("\nAmplifiers (pressure indicators, never decide state):\n")
	fmt.Fprintf(&b, "  OCC conflicts: %.2f/s, pool utilization: %.1f%%, cache hit rate: %.2f\n",
		a.PersistenceContention.OCCConflictsPerSec, a.Pool.UtilizationPct, a.Cache.HitRate)
	fmt.Fprintf(&b, "  shard ownership changes: %.2f/s, recent deploy age: %.0f s\n",
		a.Shard.OwnershipChangesPerSec, a.Deploy.RecentDeployAgeSec)

	b.WriteString("\nRespond in exactly this format, nothing else:\n")
	b.WriteString("OUTCOME: <no-explanation-needed|quick-explanation|needs-deep>\n")
	b.WriteString("SUMMARY: <one sentence, only for quick-explanation>\n")
	b.WriteString("PRIMARY_FACTOR: <signal name, only for quick-explanation>\n")
	b.WriteString("FACTORS: <comma-separated signal names, only for needs-deep>\n")
	return b.String()
}

// Deep renders the deep narrator's prompt: state, amplifiers, recent
// log patterns, retrieved knowledge-base passages, and a trend window
// of recent snapshots, per the needs-deep path's data contract.
func Deep(state signal.HealthState, p signal.Primary, a signal.Amplifier, logs []signal.LogPattern, retrieval []string, history []signal.Snapshot, trigger string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cluster health state: %s (trigger: %s)\n\n", state, trigger)
	b.WriteString("This state has already been decided by deterministic rules and must not be changed. ")
	b.WriteString("Explain why the cluster is in this state, identify likely issues, and suggest actions.\n\n")

	b.WriteString("Primary signals:\n")
	fmt.Fprintf(&b, "  throughput=%.2f/s completion_rate=%.2f backlog_age=%.1fs processing_rate=%.2f/s\n",
		p.StateTransitions.ThroughputPerSec, p.WorkflowCompletion.CompletionRate,
		p.History.BacklogAgeSec, p.History.TaskProcessingRate)

	b.WriteString("\nAmplifiers:\n")
	fmt.Fprintf(&b, "  occ_conflicts=%.2f/s pool_util=%.1f%% cache_hit=%.2f shard_churn=%.2f/s deploy_age=%.0fs\n",
		a.PersistenceContention.OCCConflictsPerSec, a.Pool.UtilizationPct, a.Cache.HitRate,
		a.Shard.OwnershipChangesPerSec, a.Deploy.RecentDeployAgeSec)

	if len(logs) > 0 {
		b.WriteString("\nRecent log patterns:\n")
		for _, lp := range logs {
			fmt.Fprintf(&b, "  [%s] %s x%d: %s\n", lp.Service, lp.Pattern, lp.Count, lp.Sample)
		}
	}

	if len(retrieval) > 0 {
		b.WriteString("\nRetrieved operational documentation:\n")
		for _, passage := range retrieval {
			fmt.Fprintf(&b, "  - %s\n", passage)
		}
	}

	if len(history) > 0 {
		fmt.Fprintf(&b, "\nRecent signal history (%d snapshots, newest first):\n", len(history))
		for _, snap := range history {
			fmt.Fprintf(&b, "  %s: throughput=%.2f/s backlog_age=%.1fs\n",
				snap.Timestamp.Format("15:04:05"), snap.Primary.StateTransitions.ThroughputPerSec, snap.Primary.History.BacklogAgeSec)
		}
	}

	b.WriteString("\nRespond with a single JSON object, nothing else, matching this shape:\n")
	b.WriteString(`{"summary": "...", "primary_factor": "...", "issues": [{"title": "...", ` +
		`"severity": "warning|critical", "description": "...", "likely_cause": "...", ` +
		`"related_metrics": ["..."], "related_logs": ["..."]}], "suggested_actions": [{"action_type": ` +
		`"scale|restart|configure|alert", "target_service": "...", "description": "...", ` +
		`"confidence": 0.0, "risk_level": "low|medium|high"}]}` + "\n")
	b.WriteString("Do not invent a different health state than the one given above; you are explaining it, not deciding it.\n")
	return b.String()
}
