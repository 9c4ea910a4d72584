package behaviourprofile_test

import (
	"testing"
	"time"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
)

func agg(mean float64) behaviourprofile.MetricAggregate {
	return behaviourprofile.MetricAggregate{Min: mean, Max: mean, Mean: mean, P50: mean, P95: mean, P99: mean}
}

func baseProfile(id string) behaviourprofile.BehaviourProfile {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	return behaviourprofile.BehaviourProfile{
		ID:                    id,
		Name:                  "profile-" + id,
		ClusterID:             "cluster-a",
		TimeWindowStart:       now.Add(-time.Hour),
		TimeWindowEnd:         now,
		TemporalServerVersion: "1.26.2",
		DSQLPluginVersion:     "1.26.2",
		CreatedAt:             now,
		ConfigSnapshot: &behaviourprofile.ConfigSnapshot{
			DynamicConfig: []behaviourprofile.DynamicConfigEntry{
				{Key: "matching.numTaskqueueReadPartitions", Value: 8},
			},
			ServerEnvVars: []behaviourprofile.EnvVarEntry{
				{Name: "dsql.reservoir_enabled", Value: "true"},
				{Name: "dsql.password", Value: "secret", Redacted: true},
			},
		},
		Telemetry: behaviourprofile.TelemetrySummary{
			Throughput: behaviourprofile.ThroughputMetrics{
				WorkflowsStartedPerSec:   agg(100),
				WorkflowsCompletedPerSec: agg(95),
				StateTransitionsPerSec:   agg(150),
			},
			Latency: behaviourprofile.LatencyMetrics{
				WorkflowScheduleToStartP95: agg(100),
				WorkflowScheduleToStartP99: agg(150),
				ActivityScheduleToStartP95: agg(50),
				ActivityScheduleToStartP99: agg(80),
				PersistenceLatencyP95:      agg(10),
				PersistenceLatencyP99:      agg(20),
			},
			Matching: behaviourprofile.MatchingMetrics{
				SyncMatchRate:       agg(0.9),
				AsyncMatchRate:      agg(0.1),
				TaskDispatchLatency: agg(5),
				BacklogCount:        agg(2),
				BacklogAge:          agg(1),
			},
			DSQLPool: behaviourprofile.DSQLPoolMetrics{
				PoolOpenCount:        agg(50),
				PoolInUseCount:       agg(20),
				PoolIdleCount:        agg(30),
				ReservoirSize:        agg(50),
				ReservoirEmptyEvents: agg(0),
				OpenFailures:         agg(0),
				ReconnectCount:       agg(0),
			},
			Errors: behaviourprofile.ErrorMetrics{
				OCCConflictsPerSec:     agg(0.1),
				ExhaustedRetriesPerSec: agg(0),
				DSQLAuthFailures:       agg(0),
			},
			Resources: behaviourprofile.ResourceMetrics{
				WorkerTaskSlotUtilization: agg(0.5),
			},
		},
	}
}

func TestCompare_NoChangeIsUnchanged(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	cmp := behaviourprofile.Compare(a, b)
	for _, d := range cmp.TelemetryDiffs {
		if d.Direction != behaviourprofile.Unchanged {
			t.Fatalf("expected unchanged, got %s for %s", d.Direction, d.Metric)
		}
	}
	if len(cmp.ConfigDiffs) != 0 {
		t.Fatalf("expected no config diffs, got %+v", cmp.ConfigDiffs)
	}
}

func TestCompare_ThroughputRegressionWhenLower(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.Telemetry.Throughput.StateTransitionsPerSec = agg(50) // -66%
	cmp := behaviourprofile.Compare(a, b)

	diff := findMetric(t, cmp.TelemetryDiffs, "state_transitions_per_sec")
	if diff.Direction != behaviourprofile.Regressed {
		t.Fatalf("expected regressed, got %s", diff.Direction)
	}
	if diff.Severity != behaviourprofile.SeverityCritical {
		t.Fatalf("expected critical severity, got %s", diff.Severity)
	}
}

func TestCompare_LatencyRegressionWhenHigher(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.Telemetry.Latency.WorkflowScheduleToStartP95 = agg(300) // +200%
	cmp := behaviourprofile.Compare(a, b)

	diff := findMetric(t, cmp.TelemetryDiffs, "workflow_schedule_to_start_p95")
	if diff.Direction != behaviourprofile.Regressed {
		t.Fatalf("expected regressed, got %s", diff.Direction)
	}
	if diff.Severity != behaviourprofile.SeverityCritical {
		t.Fatalf("expected critical severity (>2x 20%% threshold), got %s", diff.Severity)
	}
}

func TestCompare_ErrorMetricUsesErrorThreshold(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	// old 0.1 -> new 0.16 is +60% change, over the 50% error threshold but not 2x it.
	b.Telemetry.Errors.OCCConflictsPerSec = agg(0.16)
	cmp := behaviourprofile.Compare(a, b)

	diff := findMetric(t, cmp.TelemetryDiffs, "occ_conflicts_per_sec")
	if diff.Severity != behaviourprofile.SeverityWarning {
		t.Fatalf("expected warning severity, got %s (change_pct=%v)", diff.Severity, diff.ChangePct)
	}
}

func TestCompare_ConfigDiffSkipsRedacted(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.ConfigSnapshot.ServerEnvVars[1].Value = "different-secret"
	cmp := behaviourprofile.Compare(a, b)
	for _, d := range cmp.ConfigDiffs {
		if d.Key == "env.dsql.password" {
			t.Fatalf("redacted env var should never appear in a config diff")
		}
	}
}

func TestCompare_ConfigDiffSurfacesChangedKey(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.ConfigSnapshot.DynamicConfig[0].Value = 16
	cmp := behaviourprofile.Compare(a, b)
	found := false
	for _, d := range cmp.ConfigDiffs {
		if d.Key == "dynamic_config.matching.numTaskqueueReadPartitions" {
			found = true
			if d.OldValue != 8 || d.NewValue != 16 {
				t.Fatalf("unexpected diff values: %+v", d)
			}
		}
	}
	if !found {
		t.Fatalf("expected a config diff for the changed dynamic config key")
	}
}

func TestCompare_VersionDiff(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.TemporalServerVersion = "1.27.0"
	cmp := behaviourprofile.Compare(a, b)
	if len(cmp.VersionDiffs) != 1 || cmp.VersionDiffs[0].Component != "temporal_server" {
		t.Fatalf("expected one temporal_server version diff, got %+v", cmp.VersionDiffs)
	}
}

func TestCompare_SortedBySeverityThenMagnitude(t *testing.T) {
	a := baseProfile("a")
	b := baseProfile("b")
	b.Telemetry.Throughput.StateTransitionsPerSec = agg(50)               // critical, -66%
	b.Telemetry.Errors.OCCConflictsPerSec = agg(0.16)                     // warning, +60%
	b.Telemetry.Latency.PersistenceLatencyP95 = agg(13)                   // warning, +30%
	cmp := behaviourprofile.Compare(a, b)

	prevRank := -1
	prevMag := 0.0
	for _, d := range cmp.TelemetryDiffs {
		rank := severityRank(d.Severity)
		if rank < prevRank {
			t.Fatalf("telemetry diffs not sorted by severity: %+v", cmp.TelemetryDiffs)
		}
		mag := d.ChangePct
		if mag < 0 {
			mag = -mag
		}
		if rank == prevRank && mag > prevMag {
			t.Fatalf("telemetry diffs of equal severity not sorted by magnitude: %+v", cmp.TelemetryDiffs)
		}
		prevRank = rank
		prevMag = mag
	}
}

func severityRank(s behaviourprofile.DiffSeverity) int {
	switch s {
	case behaviourprofile.SeverityCritical:
		return 0
	case behaviourprofile.SeverityWarning:
		return 1
	default:
		return 2
	}
}

func findMetric(t *testing.T, diffs []behaviourprofile.TelemetryDiff, name string) behaviourprofile.TelemetryDiff {
	t.Helper()
	for _, d := range diffs {
		if d.Metric == name {
			return d
		}
	}
	t.Fatalf("metric %s not found in diffs", name)
	return behaviourprofile.TelemetryDiff{}
}
