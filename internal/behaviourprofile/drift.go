package behaviourprofile

import "math"

// DriftReport is the result of comparing a cluster's current behaviour
// against its designated baseline profile.
type DriftReport struct {
	BaselineID     string
	TelemetryDiffs []TelemetryDiff
	ConfigDiffs    []ConfigDiff
	IsDrifted      bool
}

// DetectDrift compares current against baseline and keeps only the
// metrics that actually moved past their threshold — an unchanged
// metric carries no signal for an operator chasing drift. A profile is
// drifted once any surfaced metric reaches warning severity or worse.
func DetectDrift(baseline, current BehaviourProfile, opts ...CompareOption) DriftReport {
	comparison := Compare(baseline, current, opts...)

	options := compareOptions{defaultLatencyThresholdPct, defaultErrorThresholdPct, defaultThroughputThresholdPct}
	for _, opt := range opts {
		opt(&options)
	}

	var drifted []TelemetryDiff
	for _, d := range comparison.TelemetryDiffs {
		threshold := options.latencyThresholdPct
		if containsAny(d.Metric, "error", "conflict", "failure", "empty") {
			threshold = options.errorThresholdPct
		} else if containsAny(d.Metric, "per_sec") {
			threshold = options.throughputThresholdPct
		}
		if d.Direction != Unchanged && math.Abs(d.ChangePct) > threshold {
			drifted = append(drifted, d)
		}
	}

	isDrifted := false
	for _, d := range drifted {
		if d.Severity == SeverityWarning || d.Severity == SeverityCritical {
			isDrifted = true
			break
		}
	}

	return DriftReport{
		BaselineID:     baseline.ID,
		TelemetryDiffs: drifted,
		ConfigDiffs:    comparison.ConfigDiffs,
		IsDrifted:      isDrifted,
	}
}

// CorrelationTable maps a configuration key to the telemetry metric
// names a change to that key is known to influence. It is curated
// domain knowledge, not a statistical inference — an entry here is a
// deliberate claim an operator has made about cause and effect.
type CorrelationTable map[string][]string

// DefaultCorrelationTable is the built-in config-to-metric correlation
// table covering the Safety and Tuning parameters most likely to move
// telemetry when changed.
func DefaultCorrelationTable() CorrelationTable {
	return CorrelationTable{
		"dynamic_config.persistence.maxConns": {
			"pool_open_count", "pool_in_use_count", "open_failures",
		},
		"dynamic_config.persistence.maxIdleConns": {
			"pool_idle_count", "reconnect_count",
		},
		"dynamic_config.matching.numTaskqueueReadPartitions": {
			"sync_match_rate", "async_match_rate", "backlog_count", "backlog_age",
		},
		"dynamic_config.matching.numTaskqueueWritePartitions": {
			"sync_match_rate", "async_match_rate",
		},
		"dynamic_config.history.persistenceMaxQPS": {
			"state_transitions_per_sec", "persistence_latency_p95", "persistence_latency_p99",
		},
		"dynamic_config.matching.persistenceMaxQPS": {
			"task_dispatch_latency", "persistence_latency_p95",
		},
		"dynamic_config.system.enableActivityEagerExecution": {
			"workflow_schedule_to_start_p95", "activity_schedule_to_start_p95",
		},
		"env.dsql.reservoir_enabled": {
			"reservoir_size", "reservoir_empty_events", "open_failures",
		},
		"env.dsql.distributed_rate_limiter_enabled": {
			"occ_conflicts_per_sec", "exhausted_retries_per_sec",
		},
	}
}

// CorrelatedDrift is one config change linked to a regressed telemetry
// metric a curator has recorded as a plausible consequence of it.
type CorrelatedDrift struct {
	ConfigKey        string
	OldValue         any
	NewValue         any
	CorrelatedMetric string
	TelemetryDiff    TelemetryDiff
}

// CorrelateDrift cross-references each config change in comparison
// against table, and emits a correlation for every regressed telemetry
// diff a changed config key is known to influence.
func CorrelateDrift(comparison ProfileComparison, table CorrelationTable) []CorrelatedDrift {
	regressed := map[string]TelemetryDiff{}
	for _, d := range comparison.TelemetryDiffs {
		if d.Direction == Regressed {
			regressed[d.Metric] = d
		}
	}

	var out []CorrelatedDrift
	for _, cd := range comparison.ConfigDiffs {
		metrics, ok := table[cd.Key]
		if !ok {
			continue
		}
		for _, metric := range metrics {
			if diff, ok := regressed[metric]; ok {
				out = append(out, CorrelatedDrift{
					ConfigKey:        cd.Key,
					OldValue:         cd.OldValue,
					NewValue:         cd.NewValue,
					CorrelatedMetric: metric,
					TelemetryDiff:    diff,
				})
			}
		}
	}
	return out
}
