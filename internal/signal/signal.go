// Package signal defines the typed records the copilot evaluates:
// the 12 primary forward-progress indicators, the 14 amplifier
// indicators, the worker-side snapshot, and narrative log patterns.
// Values are created by the fetch adapters and never mutated — every
// constructor here returns a value, never a pointer, so ownership is
// by-value throughout the pipeline.
package signal

import "time"

// HealthState is one of the three canonical cluster health states.
// The zero value is not a valid state; always set it explicitly.
type HealthState string

const (
	Happy    HealthState = "happy"
	Stressed HealthState = "stressed"
	Critical HealthState = "critical"
)

// clamp01 clamps a ratio signal into [0,1] per the Signal Model's
// invariant that every ratio field is clamped to that range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// nonNegative clamps a rate signal to be non-negative.
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// StateTransitionSignals covers signal group 1-2: forward-progress
// throughput and p95/p99 latency of history state transitions.
type StateTransitionSignals struct {
	ThroughputPerSec float64
	LatencyP95Ms     float64
	LatencyP99Ms     float64
}

// WorkflowCompletionSignals covers signal group 3: the terminal rate
// of workflow executions and the resulting completion ratio.
type WorkflowCompletionSignals struct {
	SuccessPerSec  float64
	FailedPerSec   float64
	CompletionRate float64 // success / (success + failed), clamped to [0,1]
}

// HistorySignals covers signal groups 4-6: backlog age, processing
// rate, and shard churn of the history service.
type HistorySignals struct {
	BacklogAgeSec        float64
	TaskProcessingRate   float64
	ShardChurnRatePerSec float64
}

// FrontendSignals covers signal groups 7-8: the frontend's error rate
// and p95/p99 latency.
type FrontendSignals struct {
	ErrorRatePerSec float64
	LatencyP95Ms    float64
	LatencyP99Ms    float64
}

// MatchingSignals covers signal group 9: workflow and activity task
// backlog age in the matching service.
type MatchingSignals struct {
	WorkflowBacklogAgeSec float64
	ActivityBacklogAgeSec float64
}

// PollerSignals covers signal group 10: poller health.
type PollerSignals struct {
	PollTimeoutRate float64
}

// PersistenceSignals covers signal groups 11-12: persistence latency
// and error/retry rate.
type PersistenceSignals struct {
	LatencyP95Ms    float64
	LatencyP99Ms    float64
	ErrorRatePerSec float64
}

// Primary bundles the 12 primary forward-progress indicators. Only
// these feed the Health State Machine — by construction, the state
// machine's evaluate function takes a Primary, never an Amplifier.
type Primary struct {
	StateTransitions  StateTransitionSignals
	WorkflowCompletion WorkflowCompletionSignals
	History           HistorySignals
	Frontend          FrontendSignals
	Matching          MatchingSignals
	Poller            PollerSignals
	Persistence       PersistenceSignals
}

// NewPrimary builds a Primary with every rate field clamped
// non-negative and every ratio field clamped to [0,1].
func NewPrimary(p Primary) Primary {
	p.StateTransitions.ThroughputPerSec = nonNegative(p.StateTransitions.ThroughputPerSec)
	p.StateTransitions.LatencyP95Ms = nonNegative(p.StateTransitions.LatencyP95Ms)
	p.StateTransitions.LatencyP99Ms = nonNegative(p.StateTransitions.LatencyP99Ms)

	p.WorkflowCompletion.SuccessPerSec = nonNegative(p.WorkflowCompletion.SuccessPerSec)
	p.WorkflowCompletion.FailedPerSec = nonNegative(p.WorkflowCompletion.FailedPerSec)
	p.WorkflowCompletion.CompletionRate = clamp01(p.WorkflowCompletion.CompletionRate)

	p.History.BacklogAgeSec = nonNegative(p.History.BacklogAgeSec)
	p.History.TaskProcessingRate = nonNegative(p.History.TaskProcessingRate)
	p.History.ShardChurnRatePerSec = nonNegative(p.History.ShardChurnRatePerSec)

	p.Frontend.ErrorRatePerSec = nonNegative(p.Frontend.ErrorRatePerSec)
	p.Frontend.LatencyP95Ms = nonNegative(p.Frontend.LatencyP95Ms)
	p.Frontend.LatencyP99Ms = nonNegative(p.Frontend.LatencyP99Ms)

	p.Matching.WorkflowBacklogAgeSec = nonNegative(p.Matching.WorkflowBacklogAgeSec)
	p.Matching.ActivityBacklogAgeSec = nonNegative(p.Matching.ActivityBacklogAgeSec)

	p.Poller.PollTimeoutRate = clamp01(p.Poller.PollTimeoutRate)

	p.Persistence.LatencyP95Ms = nonNegative(p.Persistence.LatencyP95Ms)
	p.Persistence.LatencyP99Ms = nonNegative(p.Persistence.LatencyP99Ms)
	p.Persistence.ErrorRatePerSec = nonNegative(p.Persistence.ErrorRatePerSec)

	return p
}

// --- Amplifier signals: 11 groups, 14 fields total. These explain,
// they never decide — the state machine's signature simply does not
// accept an Amplifier, which is the structural enforcement of that
// invariant.

type PersistenceContentionAmplifiers struct {
	OCCConflictsPerSec float64
}

type PoolAmplifiers struct {
	UtilizationPct   float64
	WaitDurationMs   float64
	ConnectionChurnPerSec float64
}

type QueueAmplifiers struct {
	DepthByPriority map[string]float64
}

type WorkerAmplifiers struct {
	SlotsAvailable int
	SlotsUsed      int
}

type CacheAmplifiers struct {
	HitRate float64
}

type ShardAmplifiers struct {
	OwnershipChangesPerSec float64
}

type GrpcAmplifiers struct {
	ErrorRatePerSec float64
}

type RuntimeAmplifiers struct {
	GCPauseMs float64
}

type HostAmplifiers struct {
	CPUThrottlePct float64
}

type ThrottlingAmplifiers struct {
	RateLimitedPerSec float64
}

type DeployAmplifiers struct {
	RecentDeployAgeSec float64
}

// Amplifier bundles the 14 amplifier indicators across 11 named
// groups. These never influence state decisions.
type Amplifier struct {
	PersistenceContention PersistenceContentionAmplifiers
	Pool                  PoolAmplifiers
	Queue                 QueueAmplifiers
	Worker                WorkerAmplifiers
	Cache                 CacheAmplifiers
	Shard                 ShardAmplifiers
	Grpc                  GrpcAmplifiers
	Runtime               RuntimeAmplifiers
	Host                  HostAmplifiers
	Throttling            ThrottlingAmplifiers
	Deploy                DeployAmplifiers
}

// WorkerSignal is a worker-side snapshot: schedule-to-start latency,
// task-pool slot availability, and poller counts.
//
// The sticky-cache hit-rate family differs between the server and
// the worker SDK's own exported metrics; this copilot scrapes the
// worker-exported family (per spec.md's open question), since the
// Observation Loop and drift detector both reason about worker
// capacity from the worker's own point of view.
type WorkerSignal struct {
	ScheduleToStartP95Ms float64
	ScheduleToStartP99Ms float64

	WorkflowSlotsAvailable int
	WorkflowSlotsUsed      int
	ActivitySlotsAvailable int
	ActivitySlotsUsed      int

	TotalPollers int
	TotalSlots   int

	StickyCacheHitRate float64
	WorkerCount        int
}

// SlotsExhausted reports the derived invariant that zero available
// slots of either kind implies polling has stopped.
func (w WorkerSignal) SlotsExhausted() bool {
	return w.WorkflowSlotsAvailable == 0 || w.ActivitySlotsAvailable == 0
}

// LogPattern is a narrative-only record: a recognised substring match
// against recent logs, with a sample line for context. It never feeds
// the state machine.
type LogPattern struct {
	Service string
	Pattern string
	Count   int
	Sample  string
}

// Snapshot bundles everything fetched for one observation tick.
type Snapshot struct {
	Timestamp time.Time
	Primary   Primary
	Amplifier Amplifier
	Worker    WorkerSignal
	Logs      []LogPattern
}
