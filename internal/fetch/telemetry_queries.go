package fetch

// telemetryQueries is the curated PromQL catalogue the behaviour-profile
// aggregator runs as range queries, one per named metric. Query text and
// metric names are aligned with the Temporal server + DSQL plugin metric
// families (OTel-suffixed timers end in `_milliseconds_bucket`, ratio
// histograms in `_ratio_bucket`, counters in `_total`); a query that
// matches no series is expected to come back empty, not error.
var telemetryQueries = map[string]string{
	"workflows_started_per_sec":   "sum(rate(workflow_success_total[1m]) + rate(workflow_failed_total[1m]))",
	"workflows_completed_per_sec": "sum(rate(workflow_success_total[1m]))",
	"state_transitions_per_sec":   "sum(rate(state_transition_count_ratio_sum[1m]))",

	"workflow_schedule_to_start_p95": "histogram_quantile(0.95, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='matching'}[5m])))",
	"workflow_schedule_to_start_p99": "histogram_quantile(0.99, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='matching'}[5m])))",
	"activity_schedule_to_start_p95": "histogram_quantile(0.95, sum by (le) (rate(asyncmatch_latency_milliseconds_bucket{service_name='matching'}[5m])))",
	"activity_schedule_to_start_p99": "histogram_quantile(0.99, sum by (le) (rate(asyncmatch_latency_milliseconds_bucket{service_name='matching'}[5m])))",
	"persistence_latency_p95":       "histogram_quantile(0.95, sum by (le) (rate(persistence_latency_milliseconds_bucket[5m])))",
	"persistence_latency_p99":       "histogram_quantile(0.99, sum by (le) (rate(persistence_latency_milliseconds_bucket[5m])))",

	"sync_match_rate":       "sum(rate(poll_success_total[1m]))",
	"async_match_rate":      "sum(rate(poll_timeouts_total[1m]))",
	"task_dispatch_latency": "histogram_quantile(0.95, sum by (le) (rate(asyncmatch_latency_milliseconds_bucket{service_name='matching'}[5m])))",
	"backlog_count":         "sum(approximate_backlog_count) or vector(0)",
	"backlog_age":           "histogram_quantile(0.95, sum by (le) (rate(task_latency_queue_milliseconds_bucket{service_name='history'}[5m])))",

	"pool_open_count":        "sum(dsql_reservoir_size) or sum(dsql_pool_idle) or vector(0)",
	"pool_in_use_count":      "sum(dsql_pool_in_use) or vector(0)",
	"pool_idle_count":        "sum(dsql_pool_idle) or vector(0)",
	"reservoir_size":         "sum(dsql_reservoir_size) or vector(0)",
	"reservoir_empty_events": "sum(rate(dsql_pool_wait_total[1m])) or vector(0)",
	"open_failures":          "sum(rate(persistence_errors_total[1m]))",
	"reconnect_count":        "sum(rate(dsql_reservoir_refills_total[1m]))",

	"occ_conflicts_per_sec":     `sum(rate(persistence_error_with_type_total{error_type="ShardOwnershipLostError"}[1m])) or vector(0)`,
	"exhausted_retries_per_sec": `sum(rate(persistence_error_with_type_total{error_type="ConditionFailedError"}[1m])) or vector(0)`,
	"dsql_auth_failures":        "sum(rate(persistence_session_refresh_attempts_total[1m])) or vector(0)",

	"worker_task_slot_utilization": "vector(0)",
}

// telemetryServices is the fixed service set the per-service resource
// aggregates (CPU/memory) are collected for.
var telemetryServices = []string{"history", "matching", "frontend", "worker"}

const serviceCPUQuery = "vector(0)"

func serviceMemQuery(service string) string {
	return `sum(memory_heap{job="temporal-` + service + `"}) or vector(0)`
}
