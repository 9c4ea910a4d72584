package fetch

// Instant-query catalogue for the primary and amplifier signals the
// Observation Loop polls every tick. Metric names follow the OTel
// collector's suffixing convention also used by the telemetry
// catalogue: timers as `_milliseconds_bucket`, dimensionless
// histograms as `_ratio_bucket`, counters as `_total`, DSQL plugin
// metrics prefixed `dsql_`.
var primaryQueries = map[string]string{
	"state_transitions.throughput_per_sec": "sum(rate(state_transition_count_ratio_sum[1m]))",
	"state_transitions.latency_p95_ms":     "histogram_quantile(0.95, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='history'}[5m])))",
	"state_transitions.latency_p99_ms":     "histogram_quantile(0.99, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='history'}[5m])))",

	"workflow_completion.success_per_sec": "sum(rate(workflow_success_total[1m]))",
	"workflow_completion.failed_per_sec":  "sum(rate(workflow_failed_total[1m]))",
	"workflow_completion.completion_rate": "sum(rate(workflow_success_total[1m])) / (sum(rate(workflow_success_total[1m])) + sum(rate(workflow_failed_total[1m])) + 0.0001)",

	"history.backlog_age_sec":        "histogram_quantile(0.95, sum by (le) (rate(task_latency_queue_milliseconds_bucket{service_name='history'}[5m]))) / 1000",
	"history.task_processing_rate":   "sum(rate(task_requests_total{service_name='history'}[1m]))",
	"history.shard_churn_per_sec":    "sum(rate(shard_movement_total[1m]))",

	"frontend.error_rate_per_sec":  "sum(rate(frontend_error_total[1m]))",
	"frontend.latency_p95_ms":      "histogram_quantile(0.95, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='frontend'}[5m])))",
	"frontend.latency_p99_ms":      "histogram_quantile(0.99, sum by (le) (rate(service_latency_milliseconds_bucket{service_name='frontend'}[5m])))",

	"matching.workflow_backlog_age_sec": "histogram_quantile(0.95, sum by (le) (rate(task_latency_queue_milliseconds_bucket{service_name='matching',task_type='workflow'}[5m]))) / 1000",
	"matching.activity_backlog_age_sec": "histogram_quantile(0.95, sum by (le) (rate(task_latency_queue_milliseconds_bucket{service_name='matching',task_type='activity'}[5m]))) / 1000",

	"poller.timeout_rate": "sum(rate(poll_timeouts_total[1m])) / (sum(rate(poll_success_total[1m])) + sum(rate(poll_timeouts_total[1m])) + 0.0001)",

	"persistence.latency_p95_ms":    "histogram_quantile(0.95, sum by (le) (rate(persistence_latency_milliseconds_bucket[5m])))",
	"persistence.latency_p99_ms":    "histogram_quantile(0.99, sum by (le) (rate(persistence_latency_milliseconds_bucket[5m])))",
	"persistence.error_rate_per_sec": "sum(rate(persistence_errors_total[1m]))",
}

var amplifierQueries = map[string]string{
	"persistence_contention.occ_conflicts_per_sec": `sum(rate(persistence_error_with_type_total{error_type="ShardOwnershipLostError"}[1m])) or vector(0)`,

	"pool.utilization_pct":        "sum(dsql_pool_in_use) / (sum(dsql_pool_in_use) + sum(dsql_pool_idle) + 0.0001)",
	"pool.wait_duration_ms":       "histogram_quantile(0.95, sum by (le) (rate(dsql_pool_wait_milliseconds_bucket[5m])))",
	"pool.connection_churn_per_sec": "sum(rate(dsql_reservoir_refills_total[1m]))",

	"worker.slots_available": "sum(temporal_worker_task_slots_available) or vector(0)",
	"worker.slots_used":      "sum(temporal_worker_task_slots_used) or vector(0)",

	"cache.hit_rate": "sum(rate(sticky_cache_hit_total[1m])) / (sum(rate(sticky_cache_hit_total[1m])) + sum(rate(sticky_cache_miss_total[1m])) + 0.0001)",

	"shard.ownership_changes_per_sec": "sum(rate(shard_movement_total[1m]))",

	"grpc.error_rate_per_sec": "sum(rate(grpc_server_failures_total[1m]))",

	"runtime.gc_pause_ms": "histogram_quantile(0.95, sum by (le) (rate(go_gc_duration_seconds_bucket[5m]))) * 1000",

	"host.cpu_throttle_pct": "vector(0)",

	"throttling.rate_limited_per_sec": "sum(rate(persistence_error_with_type_total{error_type=\"ResourceExhausted\"}[1m])) or vector(0)",

	"deploy.recent_deploy_age_sec": "time() - max(process_start_time_seconds)",
}

// workerQueries covers the worker-exported metric family this copilot
// scrapes for sticky-cache hit rate, per the documented open question
// (server vs worker families diverge; worker-exported is authoritative
// here since it reflects the worker's own point of view on capacity).
var workerQueries = map[string]string{
	"schedule_to_start_p95_ms": "histogram_quantile(0.95, sum by (le) (rate(temporal_workflow_task_schedule_to_start_latency_milliseconds_bucket[5m])))",
	"schedule_to_start_p99_ms": "histogram_quantile(0.99, sum by (le) (rate(temporal_workflow_task_schedule_to_start_latency_milliseconds_bucket[5m])))",

	"workflow_slots_available": "sum(temporal_worker_task_slots_available{worker_type=\"WorkflowWorker\"}) or vector(0)",
	"workflow_slots_used":      "sum(temporal_worker_task_slots_used{worker_type=\"WorkflowWorker\"}) or vector(0)",
	"activity_slots_available": "sum(temporal_worker_task_slots_available{worker_type=\"ActivityWorker\"}) or vector(0)",
	"activity_slots_used":      "sum(temporal_worker_task_slots_used{worker_type=\"ActivityWorker\"}) or vector(0)",

	"total_pollers": "sum(temporal_num_pollers) or vector(0)",
	"total_slots":   "sum(temporal_worker_task_slots_available) + sum(temporal_worker_task_slots_used) or vector(0)",

	"sticky_cache_hit_rate": "sum(rate(temporal_sticky_cache_hit_total[1m])) / (sum(rate(temporal_sticky_cache_hit_total[1m])) + sum(rate(temporal_sticky_cache_miss_total[1m])) + 0.0001)",
	"worker_count":          "count(count by (instance) (temporal_num_pollers))",
}
