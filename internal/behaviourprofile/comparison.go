package behaviourprofile

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	defaultLatencyThresholdPct    = 20.0
	defaultErrorThresholdPct      = 50.0
	defaultThroughputThresholdPct = 30.0
)

// CompareOption customizes the regression thresholds Compare applies.
type CompareOption func(*compareOptions)

type compareOptions struct {
	latencyThresholdPct    float64
	errorThresholdPct      float64
	throughputThresholdPct float64
}

// WithLatencyThresholdPct overrides the percent-change threshold used
// to classify a latency-like metric's severity.
func WithLatencyThresholdPct(pct float64) CompareOption {
	return func(o *compareOptions) { o.latencyThresholdPct = pct }
}

// WithErrorThresholdPct overrides the percent-change threshold used to
// classify an error-like metric's severity.
func WithErrorThresholdPct(pct float64) CompareOption {
	return func(o *compareOptions) { o.errorThresholdPct = pct }
}

// WithThroughputThresholdPct overrides the percent-change threshold
// used to classify a throughput-like metric's severity.
func WithThroughputThresholdPct(pct float64) CompareOption {
	return func(o *compareOptions) { o.throughputThresholdPct = pct }
}

// Compare produces a structured diff between a and b: configuration
// key/value changes, telemetry regressions and improvements, and
// version drift. Telemetry diffs are ordered critical-first, then by
// the largest absolute percent change.
func Compare(a, b BehaviourProfile, opts ...CompareOption) ProfileComparison {
	options := compareOptions{
		latencyThresholdPct:    defaultLatencyThresholdPct,
		errorThresholdPct:      defaultErrorThresholdPct,
		throughputThresholdPct: defaultThroughputThresholdPct,
	}
	for _, opt := range opts {
		opt(&options)
	}

	configDiffs := compareConfig(a, b)
	telemetryDiffs := compareTelemetry(a, b, options)
	versionDiffs := compareVersions(a, b)

	severityOrder := map[DiffSeverity]int{SeverityCritical: 0, SeverityWarning: 1, SeverityInfo: 2}
	sort.SliceStable(telemetryDiffs, func(i, j int) bool {
		oi, oj := severityOrder[telemetryDiffs[i].Severity], severityOrder[telemetryDiffs[j].Severity]
		if oi != oj {
			return oi < oj
		}
		return math.Abs(telemetryDiffs[i].ChangePct) > math.Abs(telemetryDiffs[j].ChangePct)
	})

	return ProfileComparison{
		ProfileAID:     a.ID,
		ProfileBID:     b.ID,
		ConfigDiffs:    configDiffs,
		TelemetryDiffs: telemetryDiffs,
		VersionDiffs:   versionDiffs,
	}
}

func compareConfig(a, b BehaviourProfile) []ConfigDiff {
	var diffs []ConfigDiff
	if a.ConfigSnapshot == nil || b.ConfigSnapshot == nil {
		return diffs
	}

	aDC := map[string]any{}
	for _, e := range a.ConfigSnapshot.DynamicConfig {
		aDC[e.Key] = e.Value
	}
	bDC := map[string]any{}
	for _, e := range b.ConfigSnapshot.DynamicConfig {
		bDC[e.Key] = e.Value
	}
	for _, key := range sortedUnionKeys(aDC, bDC) {
		old, hasOld := aDC[key]
		newV, hasNew := bDC[key]
		if hasOld && hasNew && !valuesEqual(old, newV) {
			diffs = append(diffs, ConfigDiff{Key: "dynamic_config." + key, OldValue: old, NewValue: newV})
		}
	}

	aEnv := map[string]string{}
	for _, e := range a.ConfigSnapshot.ServerEnvVars {
		if !e.Redacted {
			aEnv[e.Name] = e.Value
		}
	}
	bEnv := map[string]string{}
	for _, e := range b.ConfigSnapshot.ServerEnvVars {
		if !e.Redacted {
			bEnv[e.Name] = e.Value
		}
	}
	aEnvAny := map[string]any{}
	for k, v := range aEnv {
		aEnvAny[k] = v
	}
	bEnvAny := map[string]any{}
	for k, v := range bEnv {
		bEnvAny[k] = v
	}
	for _, key := range sortedUnionKeys(aEnvAny, bEnvAny) {
		old, hasOld := aEnv[key]
		newV, hasNew := bEnv[key]
		if hasOld && hasNew && old != newV {
			diffs = append(diffs, ConfigDiff{Key: "env." + key, OldValue: old, NewValue: newV})
		}
	}

	return diffs
}

// valuesEqual compares two dynamic-config values without risking a
// runtime panic on an uncomparable type (a dynamic-config value may be
// a string slice).
func valuesEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func sortedUnionKeys(a, b map[string]any) []string {
	seen := map[string]struct{}{}
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compareTelemetry(a, b BehaviourProfile, options compareOptions) []TelemetryDiff {
	aMetrics := flattenTelemetry(a)
	bMetrics := flattenTelemetry(b)

	var names []string
	for name := range aMetrics {
		if _, ok := bMetrics[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var diffs []TelemetryDiff
	for _, name := range names {
		old := aMetrics[name]
		newV := bMetrics[name]
		changePct := pctChange(old.Mean, newV.Mean)

		isError := containsAny(name, "error", "conflict", "failure", "empty")
		isThroughput := containsAny(name, "per_sec") && !isError

		var direction Direction
		switch {
		case math.Abs(changePct) < 5.0:
			direction = Unchanged
		case isThroughput:
			if changePct > 0 {
				direction = Improved
			} else {
				direction = Regressed
			}
		default:
			if changePct < 0 {
				direction = Improved
			} else {
				direction = Regressed
			}
		}

		threshold := options.latencyThresholdPct
		switch {
		case isError:
			threshold = options.errorThresholdPct
		case isThroughput:
			threshold = options.throughputThresholdPct
		}

		severity := SeverityInfo
		if direction == Regressed && math.Abs(changePct) > threshold*2 {
			severity = SeverityCritical
		} else if direction == Regressed && math.Abs(changePct) > threshold {
			severity = SeverityWarning
		}

		diffs = append(diffs, TelemetryDiff{
			Metric:    name,
			OldValue:  old,
			NewValue:  newV,
			ChangePct: round2(changePct),
			Direction: direction,
			Severity:  severity,
		})
	}

	return diffs
}

func compareVersions(a, b BehaviourProfile) []VersionDiff {
	var diffs []VersionDiff
	if a.TemporalServerVersion != b.TemporalServerVersion {
		diffs = append(diffs, VersionDiff{Component: "temporal_server", OldVersion: a.TemporalServerVersion, NewVersion: b.TemporalServerVersion})
	}
	if a.DSQLPluginVersion != b.DSQLPluginVersion {
		diffs = append(diffs, VersionDiff{Component: "dsql_plugin", OldVersion: a.DSQLPluginVersion, NewVersion: b.DSQLPluginVersion})
	}
	if a.WorkerCodeSHA != b.WorkerCodeSHA {
		diffs = append(diffs, VersionDiff{Component: "worker_code_sha"})
	}
	return diffs
}

func flattenTelemetry(p BehaviourProfile) map[string]MetricAggregate {
	t := p.Telemetry
	return map[string]MetricAggregate{
		"workflows_started_per_sec":    t.Throughput.WorkflowsStartedPerSec,
		"workflows_completed_per_sec":  t.Throughput.WorkflowsCompletedPerSec,
		"state_transitions_per_sec":    t.Throughput.StateTransitionsPerSec,

		"workflow_schedule_to_start_p95": t.Latency.WorkflowScheduleToStartP95,
		"workflow_schedule_to_start_p99": t.Latency.WorkflowScheduleToStartP99,
		"activity_schedule_to_start_p95": t.Latency.ActivityScheduleToStartP95,
		"activity_schedule_to_start_p99": t.Latency.ActivityScheduleToStartP99,
		"persistence_latency_p95":        t.Latency.PersistenceLatencyP95,
		"persistence_latency_p99":        t.Latency.PersistenceLatencyP99,

		"sync_match_rate":       t.Matching.SyncMatchRate,
		"async_match_rate":      t.Matching.AsyncMatchRate,
		"task_dispatch_latency": t.Matching.TaskDispatchLatency,
		"backlog_count":         t.Matching.BacklogCount,
		"backlog_age":           t.Matching.BacklogAge,

		"pool_open_count":        t.DSQLPool.PoolOpenCount,
		"pool_in_use_count":      t.DSQLPool.PoolInUseCount,
		"pool_idle_count":        t.DSQLPool.PoolIdleCount,
		"reservoir_size":         t.DSQLPool.ReservoirSize,
		"reservoir_empty_events": t.DSQLPool.ReservoirEmptyEvents,
		"open_failures":          t.DSQLPool.OpenFailures,
		"reconnect_count":        t.DSQLPool.ReconnectCount,

		"occ_conflicts_per_sec":     t.Errors.OCCConflictsPerSec,
		"exhausted_retries_per_sec": t.Errors.ExhaustedRetriesPerSec,
		"dsql_auth_failures":        t.Errors.DSQLAuthFailures,

		"worker_task_slot_utilization": t.Resources.WorkerTaskSlotUtilization,
	}
}

func pctChange(old, newV float64) float64 {
	if old == 0 {
		if newV == 0 {
			return 0.0
		}
		return 100.0
	}
	return ((newV - old) / math.Abs(old)) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
