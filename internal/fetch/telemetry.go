package fetch

import (
	"context"
	"sort"
	"time"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
)

// aggregate computes {min,max,mean,p50,p95,p99} from samples using the
// nearest-rank method (sorted sample at index floor(n*p), clamped to
// the last index) — the same method the telemetry collector this is
// grounded on uses, deliberately not the linear-interpolation method
// sharedmath.Percentile offers for other callers.
func aggregate(samples []float64) behaviourprofile.MetricAggregate {
	if len(samples) == 0 {
		return behaviourprofile.MetricAggregate{}
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	n := len(sorted)

	rank := func(p float64) float64 {
		idx := int(float64(n) * p)
		if idx >= n {
			idx = n - 1
		}
		return sorted[idx]
	}

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return behaviourprofile.MetricAggregate{
		Min:  sorted[0],
		Max:  sorted[n-1],
		Mean: sum / float64(n),
		P50:  rank(0.50),
		P95:  rank(0.95),
		P99:  rank(0.99),
	}
}

func seriesSamples(series []Series) []float64 {
	var out []float64
	for _, s := range series {
		for _, v := range s.Values {
			out = append(out, v.Value)
		}
	}
	return out
}

// CollectTelemetry queries every metric in the curated catalogue as a
// range query over [start, end] at step, aggregates each into a
// MetricAggregate, and assembles the result into a TelemetrySummary.
// A metric with no matching series aggregates to the zero
// MetricAggregate rather than being omitted or erroring.
func CollectTelemetry(ctx context.Context, client *PrometheusClient, start, end time.Time, step time.Duration) (behaviourprofile.TelemetrySummary, error) {
	results := make(map[string]behaviourprofile.MetricAggregate, len(telemetryQueries))
	for name, query := range telemetryQueries {
		series, err := client.QueryRange(ctx, query, start, end, step)
		if err != nil {
			return behaviourprofile.TelemetrySummary{}, err
		}
		results[name] = aggregate(seriesSamples(series))
	}

	serviceCPU := make(map[string]behaviourprofile.MetricAggregate, len(telemetryServices))
	serviceMem := make(map[string]behaviourprofile.MetricAggregate, len(telemetryServices))
	for _, svc := range telemetryServices {
		cpuSeries, err := client.QueryRange(ctx, serviceCPUQuery, start, end, step)
		if err != nil {
			return behaviourprofile.TelemetrySummary{}, err
		}
		serviceCPU[svc] = aggregate(seriesSamples(cpuSeries))

		memSeries, err := client.QueryRange(ctx, serviceMemQuery(svc), start, end, step)
		if err != nil {
			return behaviourprofile.TelemetrySummary{}, err
		}
		serviceMem[svc] = aggregate(seriesSamples(memSeries))
	}

	return behaviourprofile.TelemetrySummary{
		Throughput: behaviourprofile.ThroughputMetrics{
			WorkflowsStartedPerSec:   results["workflows_started_per_sec"],
			WorkflowsCompletedPerSec: results["workflows_completed_per_sec"],
			StateTransitionsPerSec:   results["state_transitions_per_sec"],
		},
		Latency: behaviourprofile.LatencyMetrics{
			WorkflowScheduleToStartP95: results["workflow_schedule_to_start_p95"],
			WorkflowScheduleToStartP99: results["workflow_schedule_to_start_p99"],
			ActivityScheduleToStartP95: results["activity_schedule_to_start_p95"],
			ActivityScheduleToStartP99: results["activity_schedule_to_start_p99"],
			PersistenceLatencyP95:      results["persistence_latency_p95"],
			PersistenceLatencyP99:      results["persistence_latency_p99"],
		},
		Matching: behaviourprofile.MatchingMetrics{
			SyncMatchRate:       results["sync_match_rate"],
			AsyncMatchRate:      results["async_match_rate"],
			TaskDispatchLatency: results["task_dispatch_latency"],
			BacklogCount:        results["backlog_count"],
			BacklogAge:          results["backlog_age"],
		},
		DSQLPool: behaviourprofile.DSQLPoolMetrics{
			PoolOpenCount:        results["pool_open_count"],
			PoolInUseCount:       results["pool_in_use_count"],
			PoolIdleCount:        results["pool_idle_count"],
			ReservoirSize:        results["reservoir_size"],
			ReservoirEmptyEvents: results["reservoir_empty_events"],
			OpenFailures:         results["open_failures"],
			ReconnectCount:       results["reconnect_count"],
		},
		Errors: behaviourprofile.ErrorMetrics{
			OCCConflictsPerSec:     results["occ_conflicts_per_sec"],
			ExhaustedRetriesPerSec: results["exhausted_retries_per_sec"],
			DSQLAuthFailures:       results["dsql_auth_failures"],
		},
		Resources: behaviourprofile.ResourceMetrics{
			CPUUtilization: behaviourprofile.ServiceMetrics{
				History:  serviceCPU["history"],
				Matching: serviceCPU["matching"],
				Frontend: serviceCPU["frontend"],
				Worker:   serviceCPU["worker"],
			},
			MemoryUtilization: behaviourprofile.ServiceMetrics{
				History:  serviceMem["history"],
				Matching: serviceMem["matching"],
				Frontend: serviceMem["frontend"],
				Worker:   serviceMem["worker"],
			},
			WorkerTaskSlotUtilization: results["worker_task_slot_utilization"],
		},
	}, nil
}
