package fetch

import (
	"context"
	"time"

	"github.com/clusterhealth/copilot/internal/signal"
)

// DefaultLogMatchers is the narrative log-pattern catalogue the
// Observation Loop scans for on every deep assessment: known
// recurring failure signatures worth surfacing even though they never
// feed the state machine.
var DefaultLogMatchers = []LogMatcher{
	{Service: "history", Pattern: "shard ownership lost"},
	{Service: "history", Pattern: "context deadline exceeded"},
	{Service: "matching", Pattern: "no poller"},
	{Service: "frontend", Pattern: "resource exhausted"},
	{Service: "worker", Pattern: "activity timeout"},
	{Service: "dsql", Pattern: "connection refused"},
	{Service: "dsql", Pattern: "reservoir empty"},
}

// FetchPrimary polls every metric in the primary signal catalogue as
// an instant query and assembles it into a signal.Primary, clamping
// rate/ratio fields through signal.NewPrimary.
func FetchPrimary(ctx context.Context, client *PrometheusClient) signal.Primary {
	q := func(key string) float64 { return client.InstantValue(ctx, primaryQueries[key]) }

	return signal.NewPrimary(signal.Primary{
		StateTransitions: signal.StateTransitionSignals{
			ThroughputPerSec: q("state_transitions.throughput_per_sec"),
			LatencyP95Ms:     q("state_transitions.latency_p95_ms"),
			LatencyP99Ms:     q("state_transitions.latency_p99_ms"),
		},
		WorkflowCompletion: signal.WorkflowCompletionSignals{
			SuccessPerSec:  q("workflow_completion.success_per_sec"),
			FailedPerSec:   q("workflow_completion.failed_per_sec"),
			CompletionRate: q("workflow_completion.completion_rate"),
		},
		History: signal.HistorySignals{
			BacklogAgeSec:        q("history.backlog_age_sec"),
			TaskProcessingRate:   q("history.task_processing_rate"),
			ShardChurnRatePerSec: q("history.shard_churn_per_sec"),
		},
		Frontend: signal.FrontendSignals{
			ErrorRatePerSec: q("frontend.error_rate_per_sec"),
			LatencyP95Ms:    q("frontend.latency_p95_ms"),
			LatencyP99Ms:    q("frontend.latency_p99_ms"),
		},
		Matching: signal.MatchingSignals{
			WorkflowBacklogAgeSec: q("matching.workflow_backlog_age_sec"),
			ActivityBacklogAgeSec: q("matching.activity_backlog_age_sec"),
		},
		Poller: signal.PollerSignals{
			PollTimeoutRate: q("poller.timeout_rate"),
		},
		Persistence: signal.PersistenceSignals{
			LatencyP95Ms:    q("persistence.latency_p95_ms"),
			LatencyP99Ms:    q("persistence.latency_p99_ms"),
			ErrorRatePerSec: q("persistence.error_rate_per_sec"),
		},
	})
}

// FetchAmplifier polls every metric in the amplifier catalogue. These
// values never reach the state machine; they exist purely to explain.
func FetchAmplifier(ctx context.Context, client *PrometheusClient) signal.Amplifier {
	q := func(key string) float64 { return client.InstantValue(ctx, amplifierQueries[key]) }

	return signal.Amplifier{
		PersistenceContention: signal.PersistenceContentionAmplifiers{
			OCCConflictsPerSec: q("persistence_contention.occ_conflicts_per_sec"),
		},
		Pool: signal.PoolAmplifiers{
			UtilizationPct:        q("pool.utilization_pct"),
			WaitDurationMs:        q("pool.wait_duration_ms"),
			ConnectionChurnPerSec: q("pool.connection_churn_per_sec"),
		},
		Queue: signal.QueueAmplifiers{},
		Worker: signal.WorkerAmplifiers{
			SlotsAvailable: int(q("worker.slots_available")),
			SlotsUsed:      int(q("worker.slots_used")),
		},
		Cache: signal.CacheAmplifiers{
			HitRate: q("cache.hit_rate"),
		},
		Shard: signal.ShardAmplifiers{
			OwnershipChangesPerSec: q("shard.ownership_changes_per_sec"),
		},
		Grpc: signal.GrpcAmplifiers{
			ErrorRatePerSec: q("grpc.error_rate_per_sec"),
		},
		Runtime: signal.RuntimeAmplifiers{
			GCPauseMs: q("runtime.gc_pause_ms"),
		},
		Host: signal.HostAmplifiers{
			CPUThrottlePct: q("host.cpu_throttle_pct"),
		},
		Throttling: signal.ThrottlingAmplifiers{
			RateLimitedPerSec: q("throttling.rate_limited_per_sec"),
		},
		Deploy: signal.DeployAmplifiers{
			RecentDeployAgeSec: q("deploy.recent_deploy_age_sec"),
		},
	}
}

// FetchWorker polls the worker-exported metric family for the
// schedule-to-start latencies, slot counts, and sticky-cache hit rate
// that drive bottleneck classification and scaling warnings.
func FetchWorker(ctx context.Context, client *PrometheusClient) signal.WorkerSignal {
	q := func(key string) float64 { return client.InstantValue(ctx, workerQueries[key]) }

	return signal.WorkerSignal{
		ScheduleToStartP95Ms:   q("schedule_to_start_p95_ms"),
		ScheduleToStartP99Ms:   q("schedule_to_start_p99_ms"),
		WorkflowSlotsAvailable: int(q("workflow_slots_available")),
		WorkflowSlotsUsed:      int(q("workflow_slots_used")),
		ActivitySlotsAvailable: int(q("activity_slots_available")),
		ActivitySlotsUsed:      int(q("activity_slots_used")),
		TotalPollers:           int(q("total_pollers")),
		TotalSlots:             int(q("total_slots")),
		StickyCacheHitRate:     q("sticky_cache_hit_rate"),
		WorkerCount:            int(q("worker_count")),
	}
}

// FetchSnapshot assembles one observation tick's worth of signals:
// primary and amplifier signals from Prometheus, a worker snapshot,
// and any log patterns matched over the trailing lookback window.
// Every sub-fetch degrades to zeros/no-matches on its own rather than
// failing the whole snapshot, per the transient-upstream error policy.
func FetchSnapshot(ctx context.Context, promClient *PrometheusClient, lokiClient *LokiClient, now time.Time, logLookback time.Duration) signal.Snapshot {
	var logs []signal.LogPattern
	if lokiClient != nil {
		logs = lokiClient.MatchPatterns(ctx, DefaultLogMatchers, now.Add(-logLookback), now)
	}

	return signal.Snapshot{
		Timestamp: now,
		Primary:   FetchPrimary(ctx, promClient),
		Amplifier: FetchAmplifier(ctx, promClient),
		Worker:    FetchWorker(ctx, promClient),
		Logs:      logs,
	}
}
