package compiler

import "fmt"

// Registry is the single source of truth for every configuration
// parameter the compiler can resolve. It is built once at startup and
// treated as read-only afterward.
type Registry struct {
	entries map[string]ParameterEntry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]ParameterEntry{}}
}

// Register adds an entry. It panics on a duplicate key — the registry
// is assembled once at process startup from a fixed literal table, so
// a duplicate key is a programming error, not a runtime condition.
func (r *Registry) Register(e ParameterEntry) {
	if _, exists := r.entries[e.Key]; exists {
		panic(fmt.Sprintf("compiler: parameter %q already registered", e.Key))
	}
	r.entries[e.Key] = e
	r.order = append(r.order, e.Key)
}

// Get looks up a parameter entry by key.
func (r *Registry) Get(key string) (ParameterEntry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// ListByClassification returns every entry of a given classification,
// in registration order.
func (r *Registry) ListByClassification(c Classification) []ParameterEntry {
	var out []ParameterEntry
	for _, key := range r.order {
		if e := r.entries[key]; e.Classification == c {
			out = append(out, e)
		}
	}
	return out
}

// AllKeys returns every registered key in registration order.
func (r *Registry) AllKeys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports how many parameters are registered.
func (r *Registry) Len() int {
	return len(r.entries)
}

func ptr(f float64) *float64 { return &f }

// BuildDefaultRegistry returns the registry populated with every known
// Temporal-on-DSQL configuration parameter: four SLO targets, eight
// topology dimensions, twenty safety parameters the adopter never
// sets directly, and eighteen tuning parameters derived from the other
// three classifications.
func BuildDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ParameterEntry{
		Key: "target_state_transitions_per_sec", Classification: SLO,
		Description:  "Target state transitions per second the cluster should sustain",
		Rationale:    "Primary throughput SLO — drives history replica count, persistence QPS limits, and matching partition sizing",
		DefaultValue: 50, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints: &Constraints{MinValue: ptr(1), MaxValue: ptr(10000)},
	})
	r.Register(ParameterEntry{
		Key: "target_workflow_completion_rate", Classification: SLO,
		Description:  "Target workflow completions per second",
		Rationale:    "Secondary throughput SLO — validates that workflows complete, not just start",
		DefaultValue: 50, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints: &Constraints{MinValue: ptr(1), MaxValue: ptr(10000)},
	})
	r.Register(ParameterEntry{
		Key: "max_schedule_to_start_latency_ms", Classification: SLO,
		Description:  "Maximum acceptable schedule-to-start latency for workflow tasks",
		Rationale:    "Latency SLO — drives matching partition count and poller configuration",
		DefaultValue: 200, ValueType: ValueInt, Unit: UnitMillisecond,
		Constraints: &Constraints{MinValue: ptr(10), MaxValue: ptr(60000)},
	})
	r.Register(ParameterEntry{
		Key: "max_e2e_workflow_latency_ms", Classification: SLO,
		Description:  "Maximum acceptable end-to-end workflow latency for simple workflows",
		Rationale:    "End-to-end latency SLO — drives eager execution settings and activity dispatch strategy",
		DefaultValue: 500, ValueType: ValueInt, Unit: UnitMillisecond,
		Constraints: &Constraints{MinValue: ptr(50), MaxValue: ptr(300000)},
	})

	r.Register(ParameterEntry{
		Key: "history.shards", Classification: Topology,
		Description: "Number of history shards for the Temporal cluster",
		Rationale:   "Shard count determines parallelism for history processing; must be set at cluster creation and cannot be changed",
		DefaultValue: 512, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(16384)},
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "history.replicas", Classification: Topology,
		Description: "Number of history service replicas",
		Rationale:   "More replicas distribute shard ownership and increase throughput capacity",
		DefaultValue: 4, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(100)},
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "matching.replicas", Classification: Topology,
		Description: "Number of matching service replicas",
		Rationale:   "Matching replicas handle task dispatch; scale with task queue throughput",
		DefaultValue: 2, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(50)},
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "frontend.replicas", Classification: Topology,
		Description: "Number of frontend service replicas",
		Rationale:   "Frontend replicas handle API requests; scale with client connection count",
		DefaultValue: 2, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(50)},
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "worker.replicas", Classification: Topology,
		Description: "Number of Temporal internal worker replicas",
		Rationale:   "Internal workers handle system workflows (archival, replication); typically 2 is sufficient",
		DefaultValue: 2, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(10)},
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "matching.numTaskqueueReadPartitions", Classification: Topology,
		Description: "Number of task queue read partitions for matching service",
		Rationale:   "More partitions increase task dispatch throughput but add overhead; scale with workload",
		DefaultValue: 4, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(64)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "matching.numTaskqueueWritePartitions", Classification: Topology,
		Description: "Number of task queue write partitions for matching service",
		Rationale:   "Should match read partitions for balanced dispatch",
		DefaultValue: 4, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(64)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "sdk.worker_count", Classification: Topology,
		Description: "Number of SDK worker instances processing workflows and activities",
		Rationale:   "Worker count determines total polling capacity; scale with workflow throughput",
		DefaultValue: 4, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(200)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})

	r.Register(ParameterEntry{
		Key: "persistence.maxConns", Classification: Safety,
		Description: "Maximum open database connections per service instance",
		Rationale:   "Pool size must be pre-warmed and stable; DSQL's 100 conn/sec rate limit means pool decay under load causes cascading failures",
		DefaultValue: 50, ValueType: ValueInt, Unit: UnitConnections,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(500)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "persistence.maxIdleConns", Classification: Safety,
		Description: "Maximum idle database connections per service instance",
		Rationale:   "MUST equal maxConns to prevent pool decay; Go's database/sql closes idle connections beyond this limit",
		DefaultValue: 50, ValueType: ValueInt, Unit: UnitConnections,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(500)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "dsql.max_conn_lifetime", Classification: Safety,
		Description: "Maximum lifetime of a database connection before replacement",
		Rationale:   "Must be under DSQL's 60-minute connection limit; 55m allows headroom for in-flight transactions",
		DefaultValue: "55m", ValueType: ValueDuration, Unit: UnitMinute,
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "dsql.connection_timeout", Classification: Safety,
		Description: "Timeout for establishing a new database connection",
		Rationale:   "Prevents indefinite blocking on connection creation; must account for IAM token generation and TLS handshake",
		DefaultValue: "30s", ValueType: ValueDuration, Unit: UnitSecond,
		OutputTargets: []OutputTarget{OutputEnvVars},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_enabled", Classification: Safety,
		Description:   "Enable connection reservoir for pre-creating connections off the request path",
		Rationale:     "Reservoir avoids competing for DSQL's 100 conn/sec rate limit during request processing",
		DefaultValue:  true, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_target_ready", Classification: Safety,
		Description: "Target number of ready connections in the reservoir",
		Rationale:   "Should match maxConns so the reservoir always has connections available; prevents empty checkout events",
		DefaultValue: 50, ValueType: ValueInt, Unit: UnitConnections,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(500)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_base_lifetime", Classification: Safety,
		Description: "Base lifetime for reservoir connections before proactive replacement",
		Rationale:   "11 minutes with 2m jitter gives 10-12m effective range, well under DSQL's 60m limit; short enough to rotate credentials regularly",
		DefaultValue: "11m", ValueType: ValueDuration, Unit: UnitMinute,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_lifetime_jitter", Classification: Safety,
		Description: "Random jitter added to each connection's lifetime to prevent thundering herd",
		Rationale:   "Without jitter, all connections expire simultaneously causing a burst of new connections that can exceed the rate limit",
		DefaultValue: "2m", ValueType: ValueDuration, Unit: UnitMinute,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_guard_window", Classification: Safety,
		Description: "Time before expiry when connections are considered too old to hand out",
		Rationale:   "Prevents handing out connections that might expire during a transaction; 45s covers the longest expected DSQL transaction",
		DefaultValue: "45s", ValueType: ValueDuration, Unit: UnitSecond,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.reservoir_inflight_limit", Classification: Safety,
		Description: "Maximum concurrent connection creation attempts in the reservoir refiller",
		Rationale:   "Limits concurrent TCP/TLS handshakes to prevent pile-ups during burst refill",
		DefaultValue: 8, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(32)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.connection_rate_limit", Classification: Safety,
		Description: "Per-instance connection creation rate limit (connections per second)",
		Rationale:   "Partitions DSQL's cluster-wide 100 conn/sec budget across service instances to prevent rate limit errors",
		DefaultValue: 10, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(100)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.connection_burst_limit", Classification: Safety,
		Description: "Per-instance connection creation burst capacity",
		Rationale:   "Allows brief bursts during startup or connection replacement without exceeding sustained rate",
		DefaultValue: 100, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(1000)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.distributed_rate_limiter_enabled", Classification: Safety,
		Description:   "Enable DynamoDB-backed distributed rate limiting for multi-instance deployments",
		Rationale:     "Coordinates connection rate across all instances to respect DSQL's cluster-wide 100 conn/sec limit",
		DefaultValue:  false, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.distributed_rate_limiter_table", Classification: Safety,
		Description:   "DynamoDB table name for distributed rate limiting",
		Rationale:     "Required when distributed rate limiting is enabled; table must exist with correct schema",
		DefaultValue:  "", ValueType: ValueString,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.token_bucket_enabled", Classification: Safety,
		Description:   "Use token bucket algorithm for distributed rate limiting (vs simple per-second counter)",
		Rationale:     "Token bucket supports burst capacity matching DSQL's 1000-connection burst; recommended over simple counter",
		DefaultValue:  false, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.token_bucket_rate", Classification: Safety,
		Description: "Token refill rate for distributed rate limiting (tokens per second)",
		Rationale:   "Should match DSQL's sustained connection rate limit of 100 conn/sec",
		DefaultValue: 100, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(1000)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.token_bucket_capacity", Classification: Safety,
		Description: "Maximum tokens in the distributed rate limiter bucket",
		Rationale:   "Should match DSQL's burst capacity of 1000 connections",
		DefaultValue: 1000, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(10000)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.slot_block_enabled", Classification: Safety,
		Description:   "Enable DynamoDB-backed distributed connection leasing via slot blocks",
		Rationale:     "Coordinates global connection count against DSQL's 10,000 max connections limit across all services",
		DefaultValue:  false, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.slot_block_size", Classification: Safety,
		Description: "Number of connection slots per block",
		Rationale:   "100 slots per block with 100 blocks gives 10,000 total slots matching DSQL's connection limit",
		DefaultValue: 100, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(10), MaxValue: ptr(1000)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})
	r.Register(ParameterEntry{
		Key: "dsql.slot_block_count", Classification: Safety,
		Description: "Total number of slot blocks available for leasing",
		Rationale:   "100 blocks x 100 slots = 10,000 total connections matching DSQL's cluster limit",
		DefaultValue: 100, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(1000)},
		OutputTargets: []OutputTarget{OutputDSQLPlugin},
	})

	r.Register(ParameterEntry{
		Key: "history.persistenceMaxQPS", Classification: Tuning,
		Description: "Maximum persistence operations per second for history service",
		Rationale:   "Derived from target state transitions; higher values allow more throughput but increase DSQL load",
		DefaultValue: 3000, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(100), MaxValue: ptr(20000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "matching.persistenceMaxQPS", Classification: Tuning,
		Description: "Maximum persistence operations per second for matching service",
		Rationale:   "Derived from target throughput; matching persistence is lighter than history",
		DefaultValue: 3000, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(100), MaxValue: ptr(20000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "frontend.persistenceMaxQPS", Classification: Tuning,
		Description: "Maximum persistence operations per second for frontend service",
		Rationale:   "Frontend persistence is primarily for namespace and visibility operations",
		DefaultValue: 3000, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(100), MaxValue: ptr(20000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "matching.maxTaskBatchSize", Classification: Tuning,
		Description: "Maximum number of tasks returned in a single matching batch",
		Rationale:   "Larger batches reduce round-trips but increase per-request latency; tuned for DSQL transaction sizes",
		DefaultValue: 100, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(10), MaxValue: ptr(1000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "matching.getTasksBatchSize", Classification: Tuning,
		Description: "Number of tasks fetched from persistence in a single query",
		Rationale:   "Controls persistence read amplification; larger values reduce queries but increase memory",
		DefaultValue: 1000, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(100), MaxValue: ptr(10000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "matching.longPollExpirationInterval", Classification: Tuning,
		Description: "Duration before a long-poll request expires and is retried",
		Rationale:   "60s balances responsiveness with connection efficiency; shorter values increase polling overhead",
		DefaultValue: "60s", ValueType: ValueDuration, Unit: UnitSecond,
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "history.timerProcessorMaxPollRPS", Classification: Tuning,
		Description: "Maximum rate for timer processor polling",
		Rationale:   "Controls timer processing throughput; higher values increase DSQL load from timer queries",
		DefaultValue: 20, ValueType: ValueInt, Unit: UnitPerSec,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(200)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "history.timerProcessorUpdateAckInterval", Classification: Tuning,
		Description: "Interval between timer processor acknowledgment updates",
		Rationale:   "Controls how often timer progress is persisted; shorter intervals increase DSQL writes",
		DefaultValue: "30s", ValueType: ValueDuration, Unit: UnitSecond,
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "system.enableActivityEagerExecution", Classification: Tuning,
		Description:   "Enable eager activity execution — activities dispatched back to the same worker inline",
		Rationale:     "Reduces round-trips for simple activities; must be enabled server-side for SDK eager activities to work",
		DefaultValue:  true, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "sdk.max_concurrent_activities", Classification: Tuning,
		Description: "Maximum concurrent activity executions per worker",
		Rationale:   "Derived from throughput target and worker count; prevents worker overload",
		DefaultValue: 200, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(2000)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.max_concurrent_workflow_tasks", Classification: Tuning,
		Description: "Maximum concurrent workflow task executions per worker",
		Rationale:   "Derived from throughput target; controls workflow task processing parallelism",
		DefaultValue: 200, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(2000)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.max_concurrent_local_activities", Classification: Tuning,
		Description: "Maximum concurrent local activity executions per worker",
		Rationale:   "Local activities run in the workflow task thread; limit prevents workflow task starvation",
		DefaultValue: 200, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(2000)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.workflow_task_pollers", Classification: Tuning,
		Description: "Number of concurrent workflow task pollers per worker",
		Rationale:   "More pollers increase workflow task throughput but consume more connections; scale with workload",
		DefaultValue: 16, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(64)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.activity_task_pollers", Classification: Tuning,
		Description: "Number of concurrent activity task pollers per worker",
		Rationale:   "Activity pollers fetch tasks from matching; fewer needed when eager activities are enabled",
		DefaultValue: 8, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(1), MaxValue: ptr(64)},
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.sticky_schedule_to_start_timeout", Classification: Tuning,
		Description: "Timeout for sticky workflow task schedule-to-start before falling back to non-sticky",
		Rationale:   "Sticky execution caches workflow state on the worker; timeout controls fallback to any-worker dispatch",
		DefaultValue: "5s", ValueType: ValueDuration, Unit: UnitSecond,
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "sdk.disable_eager_activities", Classification: Tuning,
		Description:   "Disable eager activity execution on the SDK worker",
		Rationale:     "When false (eager enabled), activities dispatch inline reducing latency; requires server-side enablement",
		DefaultValue:  false, ValueType: ValueBool,
		OutputTargets: []OutputTarget{OutputWorkerOptions},
	})
	r.Register(ParameterEntry{
		Key: "persistence.transactionSizeLimit", Classification: Tuning,
		Description: "Maximum transaction size in bytes for persistence operations",
		Rationale:   "DSQL has transaction size limits; 4MB accommodates large workflow histories",
		DefaultValue: 4000000, ValueType: ValueInt, Unit: UnitBytes,
		Constraints:   &Constraints{MinValue: ptr(1000000), MaxValue: ptr(16000000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})
	r.Register(ParameterEntry{
		Key: "history.maxBufferedQueryCount", Classification: Tuning,
		Description: "Maximum number of buffered queries per workflow execution",
		Rationale:   "Controls memory usage for query buffering; 1000 is sufficient for most workloads",
		DefaultValue: 1000, ValueType: ValueInt, Unit: UnitCount,
		Constraints:   &Constraints{MinValue: ptr(100), MaxValue: ptr(10000)},
		OutputTargets: []OutputTarget{OutputDynamicConfig},
	})

	return r
}
