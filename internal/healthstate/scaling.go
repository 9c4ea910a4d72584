package healthstate

import "github.com/clusterhealth/copilot/internal/signal"

// ScalingAction is the action under consideration when evaluating the
// worker scaling rules — it is advisory input, never something this
// package decides on its own.
type ScalingAction string

const (
	ScaleUp   ScalingAction = "scale_up"
	ScaleDown ScalingAction = "scale_down"
)

// ScalingContext carries the extra facts the scaling rules need beyond
// the raw WorkerSignal: whether long-running workflows are present and
// the current worker replica count, both of which come from outside
// the signal fetch path.
type ScalingContext struct {
	HasLongRunningWorkflows bool
	WorkerReplicaCount      int
}

// WarningSeverity distinguishes an advisory note from a hard block.
type WarningSeverity string

const (
	SeverityCritical WarningSeverity = "critical"
	SeverityWarning  WarningSeverity = "warning"
)

// ScalingWarning is one deterministic, non-overridable warning emitted
// by EvaluateScalingRules.
type ScalingWarning struct {
	Rule     string
	Severity WarningSeverity
	Message  string
}

// EvaluateScalingRules runs the four deterministic, advisory worker
// scaling rules against a proposed action. Rules never silently
// override an operator's choice; they only ever append a warning.
func EvaluateScalingRules(w signal.WorkerSignal, proposed ScalingAction, ctx ScalingContext) []ScalingWarning {
	var warnings []ScalingWarning

	// NEVER_SCALE_DOWN_AT_ZERO: any zero-slot condition blocks scale-down.
	if proposed == ScaleDown && w.SlotsExhausted() {
		warnings = append(warnings, ScalingWarning{
			Rule:     "NEVER_SCALE_DOWN_AT_ZERO",
			Severity: SeverityCritical,
			Message:  "at least one task-pool slot type is fully exhausted; scaling down now would worsen backlog",
		})
	}

	// STICKY_QUEUE_WARNING: scale-up under long-running workflows warns
	// that sticky-cached state won't migrate to new workers.
	if proposed == ScaleUp && ctx.HasLongRunningWorkflows {
		warnings = append(warnings, ScalingWarning{
			Rule:     "STICKY_QUEUE_WARNING",
			Severity: SeverityWarning,
			Message:  "long-running workflows have sticky-cached state on existing workers that will not migrate to new ones",
		})
	}

	// RESTART_TO_REDISTRIBUTE: low sticky-cache hit-rate with many
	// workers suggests a rolling restart to redistribute load.
	if w.StickyCacheHitRate < 0.5 && ctx.WorkerReplicaCount > 5 {
		warnings = append(warnings, ScalingWarning{
			Rule:     "RESTART_TO_REDISTRIBUTE",
			Severity: SeverityWarning,
			Message:  "sticky-cache hit rate is low across many workers; a rolling restart may redistribute sticky load more evenly",
		})
	}

	// POLLER_EXECUTOR_MISMATCH: more pollers than task-pool slots warns
	// of wasted poller capacity.
	if w.TotalSlots > 0 && w.TotalPollers > w.TotalSlots {
		warnings = append(warnings, ScalingWarning{
			Rule:     "POLLER_EXECUTOR_MISMATCH",
			Severity: SeverityWarning,
			Message:  "poller count exceeds total task-pool slots; excess pollers are wasted capacity",
		})
	}

	return warnings
}
