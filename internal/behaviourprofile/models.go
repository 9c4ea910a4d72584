// Package behaviourprofile captures a cluster's configuration and
// telemetry over a bounded time window as a single comparable record,
// and diffs two such records against each other to surface
// configuration drift and telemetry regressions.
package behaviourprofile

import (
	"time"

	"github.com/clusterhealth/copilot/internal/compiler"
)

// MetricAggregate summarizes one metric's samples over a time window.
type MetricAggregate struct {
	Min  float64
	Max  float64
	Mean float64
	P50  float64
	P95  float64
	P99  float64
}

// ServiceMetrics is one metric aggregated per Temporal service.
type ServiceMetrics struct {
	History  MetricAggregate
	Matching MetricAggregate
	Frontend MetricAggregate
	Worker   MetricAggregate
}

// DynamicConfigEntry is one resolved dynamic-config key/value pair as
// it was actually observed on the cluster at snapshot time.
type DynamicConfigEntry struct {
	Key   string
	Value any
}

// EnvVarEntry is one server process env var. Values flagged sensitive
// at capture time are Redacted and never carry a comparable Value.
type EnvVarEntry struct {
	Name     string
	Value    string
	Redacted bool
}

// WorkerOptionsSnapshot is the SDK worker option surface observed at
// snapshot time.
type WorkerOptionsSnapshot struct {
	MaxConcurrentActivities            *int
	MaxConcurrentWorkflowTasks         *int
	MaxConcurrentLocalActivities       *int
	WorkflowTaskPollers                *int
	ActivityTaskPollers                *int
	StickyScheduleToStartTimeoutSec    *float64
	DisableEagerActivities             *bool
}

// DSQLPluginSnapshot mirrors compiler.DSQLPluginConfig as observed on
// a live cluster rather than as compiled.
type DSQLPluginSnapshot struct {
	ReservoirEnabled              bool
	ReservoirTargetReady          int
	ReservoirBaseLifetimeMin      float64
	ReservoirLifetimeJitterMin    float64
	ReservoirGuardWindowSec       float64
	MaxConns                      int
	MaxIdleConns                  int
	MaxConnLifetimeMin            float64
	DistributedRateLimiterEnabled bool
	TokenBucketEnabled            bool
	TokenBucketRate               *int
	TokenBucketCapacity           *int
	SlotBlockEnabled              bool
	SlotBlockSize                 *int
	SlotBlockCount                *int
}

// ConfigSnapshot is everything about a cluster's configuration worth
// capturing in a profile: the dynamic config table, non-secret server
// env vars, worker options, the DSQL plugin's live config, and — when
// the profile was produced from a compiled preset — the profile that
// produced it.
type ConfigSnapshot struct {
	DynamicConfig    []DynamicConfigEntry
	ServerEnvVars    []EnvVarEntry
	WorkerOptions    WorkerOptionsSnapshot
	DSQLPluginConfig DSQLPluginSnapshot
	ConfigProfile    *compiler.Profile
}

type ThroughputMetrics struct {
	WorkflowsStartedPerSec   MetricAggregate
	WorkflowsCompletedPerSec MetricAggregate
	StateTransitionsPerSec   MetricAggregate
}

type LatencyMetrics struct {
	WorkflowScheduleToStartP95 MetricAggregate
	WorkflowScheduleToStartP99 MetricAggregate
	ActivityScheduleToStartP95 MetricAggregate
	ActivityScheduleToStartP99 MetricAggregate
	PersistenceLatencyP95      MetricAggregate
	PersistenceLatencyP99      MetricAggregate
}

type MatchingMetrics struct {
	SyncMatchRate       MetricAggregate
	AsyncMatchRate      MetricAggregate
	TaskDispatchLatency MetricAggregate
	BacklogCount        MetricAggregate
	BacklogAge          MetricAggregate
}

type DSQLPoolMetrics struct {
	PoolOpenCount        MetricAggregate
	PoolInUseCount       MetricAggregate
	PoolIdleCount        MetricAggregate
	ReservoirSize        MetricAggregate
	ReservoirEmptyEvents MetricAggregate
	OpenFailures         MetricAggregate
	ReconnectCount       MetricAggregate
}

type ErrorMetrics struct {
	OCCConflictsPerSec      MetricAggregate
	ExhaustedRetriesPerSec  MetricAggregate
	DSQLAuthFailures        MetricAggregate
}

type ResourceMetrics struct {
	CPUUtilization            ServiceMetrics
	MemoryUtilization         ServiceMetrics
	WorkerTaskSlotUtilization MetricAggregate
}

// TelemetrySummary is a cluster's behaviour over a time window,
// aggregated into the six sub-groups the comparison engine diffs.
type TelemetrySummary struct {
	Throughput ThroughputMetrics
	Latency    LatencyMetrics
	Matching   MatchingMetrics
	DSQLPool   DSQLPoolMetrics
	Errors     ErrorMetrics
	Resources  ResourceMetrics
}

// BehaviourProfile is a cluster's configuration and telemetry captured
// over a bounded time window, identified well enough to compare
// against another profile or against a running cluster for drift.
type BehaviourProfile struct {
	ID    string
	Name  string
	Label string

	ClusterID       string
	Namespace       string
	TaskQueue       string
	TimeWindowStart time.Time
	TimeWindowEnd   time.Time

	TemporalServerVersion string
	DSQLPluginVersion     string
	WorkerCodeSHA         string

	ConfigSnapshot *ConfigSnapshot
	Telemetry      TelemetrySummary

	CreatedAt  time.Time
	IsBaseline bool
}

// Window reports the profile's capture window duration.
func (p BehaviourProfile) Window() time.Duration {
	return p.TimeWindowEnd.Sub(p.TimeWindowStart)
}

// ConfigDiff is one configuration key whose value differs between two
// profiles.
type ConfigDiff struct {
	Key            string
	OldValue       any
	NewValue       any
	Classification compiler.Classification
}

// Direction classifies whether a telemetry change is good or bad news.
type Direction string

const (
	Improved  Direction = "improved"
	Regressed Direction = "regressed"
	Unchanged Direction = "unchanged"
)

// DiffSeverity classifies how much attention a telemetry diff deserves.
type DiffSeverity string

const (
	SeverityInfo     DiffSeverity = "info"
	SeverityWarning  DiffSeverity = "warning"
	SeverityCritical DiffSeverity = "critical"
)

// TelemetryDiff is one metric's change between two profiles.
type TelemetryDiff struct {
	Metric    string
	OldValue  MetricAggregate
	NewValue  MetricAggregate
	ChangePct float64
	Direction Direction
	Severity  DiffSeverity
}

// VersionDiff is one version-like field that differs between two
// profiles.
type VersionDiff struct {
	Component  string
	OldVersion string
	NewVersion string
}

// ProfileComparison is the full structured diff produced by Compare.
type ProfileComparison struct {
	ProfileAID     string
	ProfileBID     string
	ConfigDiffs    []ConfigDiff
	TelemetryDiffs []TelemetryDiff
	VersionDiffs   []VersionDiff
}
