package compiler

// ThroughputRange bounds the state-transition rate a preset targets.
type ThroughputRange struct {
	MinStPerSec float64
	MaxStPerSec *float64
	Description string
}

// PresetDefault is one literal value a preset supplies for an SLO or
// Topology parameter.
type PresetDefault struct {
	Key   string
	Value any
}

// DerivationRule computes a Safety or Tuning parameter from a tiny
// expression language: a literal, a quoted string literal, or a bare
// key that looks the value up in the parameters derived so far.
type DerivationRule struct {
	Key        string
	Expression string
	DependsOn  []string
}

// TelemetryBound is an expected operating range a conforming cluster
// should stay within; used only by preset conformance checks.
type TelemetryBound struct {
	Metric string
	Lower  float64
	Upper  float64
}

// ScalePreset is the primary input to the compiler: SLO and Topology
// defaults plus the derivation rules that produce every Safety and
// Tuning parameter.
type ScalePreset struct {
	Name              string
	Description       string
	ThroughputRange   ThroughputRange
	SLODefaults       []PresetDefault
	TopologyDefaults  []PresetDefault
	SafetyDerivations []DerivationRule
	TuningDerivations []DerivationRule
	ExpectedBounds    []TelemetryBound
}

func frange(min float64, max *float64, desc string) ThroughputRange {
	return ThroughputRange{MinStPerSec: min, MaxStPerSec: max, Description: desc}
}

var starterPreset = ScalePreset{
	Name:        "starter",
	Description: "Low-throughput deployment for development, testing, or light production workloads",
	ThroughputRange: frange(0, func() *float64 { v := 50.0; return &v }(), "Under 50 state transitions per second"),
	SLODefaults: []PresetDefault{
		{"target_state_transitions_per_sec", 25},
		{"target_workflow_completion_rate", 25},
		{"max_schedule_to_start_latency_ms", 500},
		{"max_e2e_workflow_latency_ms", 1000},
	},
	TopologyDefaults: []PresetDefault{
		{"history.shards", 512},
		{"history.replicas", 2},
		{"matching.replicas", 2},
		{"frontend.replicas", 2},
		{"worker.replicas", 1},
		{"matching.numTaskqueueReadPartitions", 4},
		{"matching.numTaskqueueWritePartitions", 4},
		{"sdk.worker_count", 2},
	},
	SafetyDerivations: []DerivationRule{
		{"persistence.maxConns", "10", nil},
		{"persistence.maxIdleConns", "persistence.maxConns", []string{"persistence.maxConns"}},
		{"dsql.max_conn_lifetime", "'55m'", nil},
		{"dsql.connection_timeout", "'30s'", nil},
		{"dsql.reservoir_enabled", "False", nil},
		{"dsql.reservoir_target_ready", "10", nil},
		{"dsql.reservoir_base_lifetime", "'11m'", nil},
		{"dsql.reservoir_lifetime_jitter", "'2m'", nil},
		{"dsql.reservoir_guard_window", "'45s'", nil},
		{"dsql.reservoir_inflight_limit", "4", nil},
		{"dsql.connection_rate_limit", "10", nil},
		{"dsql.connection_burst_limit", "50", nil},
		{"dsql.distributed_rate_limiter_enabled", "False", nil},
		{"dsql.distributed_rate_limiter_table", "''", nil},
		{"dsql.token_bucket_enabled", "False", nil},
		{"dsql.token_bucket_rate", "100", nil},
		{"dsql.token_bucket_capacity", "1000", nil},
		{"dsql.slot_block_enabled", "False", nil},
		{"dsql.slot_block_size", "100", nil},
		{"dsql.slot_block_count", "100", nil},
	},
	TuningDerivations: []DerivationRule{
		{"history.persistenceMaxQPS", "1000", nil},
		{"matching.persistenceMaxQPS", "1000", nil},
		{"frontend.persistenceMaxQPS", "1000", nil},
		{"matching.maxTaskBatchSize", "100", nil},
		{"matching.getTasksBatchSize", "500", nil},
		{"matching.longPollExpirationInterval", "'60s'", nil},
		{"history.timerProcessorMaxPollRPS", "10", nil},
		{"history.timerProcessorUpdateAckInterval", "'30s'", nil},
		{"system.enableActivityEagerExecution", "True", nil},
		{"sdk.max_concurrent_activities", "100", nil},
		{"sdk.max_concurrent_workflow_tasks", "100", nil},
		{"sdk.max_concurrent_local_activities", "100", nil},
		{"sdk.workflow_task_pollers", "8", nil},
		{"sdk.activity_task_pollers", "4", nil},
		{"sdk.sticky_schedule_to_start_timeout", "'5s'", nil},
		{"sdk.disable_eager_activities", "False", nil},
		{"persistence.transactionSizeLimit", "4000000", nil},
		{"history.maxBufferedQueryCount", "1000", nil},
	},
	ExpectedBounds: []TelemetryBound{
		{Metric: "state_transitions_per_sec", Lower: 0, Upper: 50},
		{Metric: "workflow_schedule_to_start_p99", Lower: 0, Upper: 500},
	},
}

var midScalePreset = ScalePreset{
	Name:        "mid-scale",
	Description: "Moderate-throughput deployment for production workloads with balanced resource allocation",
	ThroughputRange: frange(50, func() *float64 { v := 500.0; return &v }(), "50 to 500 state transitions per second"),
	SLODefaults: []PresetDefault{
		{"target_state_transitions_per_sec", 150},
		{"target_workflow_completion_rate", 150},
		{"max_schedule_to_start_latency_ms", 200},
		{"max_e2e_workflow_latency_ms", 500},
	},
	TopologyDefaults: []PresetDefault{
		{"history.shards", 512},
		{"history.replicas", 6},
		{"matching.replicas", 4},
		{"frontend.replicas", 3},
		{"worker.replicas", 2},
		{"matching.numTaskqueueReadPartitions", 8},
		{"matching.numTaskqueueWritePartitions", 8},
		{"sdk.worker_count", 8},
	},
	SafetyDerivations: []DerivationRule{
		{"persistence.maxConns", "50", nil},
		{"persistence.maxIdleConns", "persistence.maxConns", []string{"persistence.maxConns"}},
		{"dsql.max_conn_lifetime", "'55m'", nil},
		{"dsql.connection_timeout", "'30s'", nil},
		{"dsql.reservoir_enabled", "True", nil},
		{"dsql.reservoir_target_ready", "50", nil},
		{"dsql.reservoir_base_lifetime", "'11m'", nil},
		{"dsql.reservoir_lifetime_jitter", "'2m'", nil},
		{"dsql.reservoir_guard_window", "'45s'", nil},
		{"dsql.reservoir_inflight_limit", "8", nil},
		{"dsql.connection_rate_limit", "10", nil},
		{"dsql.connection_burst_limit", "100", nil},
		{"dsql.distributed_rate_limiter_enabled", "False", nil},
		{"dsql.distributed_rate_limiter_table", "''", nil},
		{"dsql.token_bucket_enabled", "False", nil},
		{"dsql.token_bucket_rate", "100", nil},
		{"dsql.token_bucket_capacity", "1000", nil},
		{"dsql.slot_block_enabled", "False", nil},
		{"dsql.slot_block_size", "100", nil},
		{"dsql.slot_block_count", "100", nil},
	},
	TuningDerivations: []DerivationRule{
		{"history.persistenceMaxQPS", "6000", nil},
		{"matching.persistenceMaxQPS", "6000", nil},
		{"frontend.persistenceMaxQPS", "6000", nil},
		{"matching.maxTaskBatchSize", "100", nil},
		{"matching.getTasksBatchSize", "1000", nil},
		{"matching.longPollExpirationInterval", "'60s'", nil},
		{"history.timerProcessorMaxPollRPS", "20", nil},
		{"history.timerProcessorUpdateAckInterval", "'30s'", nil},
		{"system.enableActivityEagerExecution", "True", nil},
		{"sdk.max_concurrent_activities", "200", nil},
		{"sdk.max_concurrent_workflow_tasks", "200", nil},
		{"sdk.max_concurrent_local_activities", "200", nil},
		{"sdk.workflow_task_pollers", "16", nil},
		{"sdk.activity_task_pollers", "8", nil},
		{"sdk.sticky_schedule_to_start_timeout", "'5s'", nil},
		{"sdk.disable_eager_activities", "False", nil},
		{"persistence.transactionSizeLimit", "4000000", nil},
		{"history.maxBufferedQueryCount", "1000", nil},
	},
	ExpectedBounds: []TelemetryBound{
		{Metric: "state_transitions_per_sec", Lower: 50, Upper: 500},
		{Metric: "workflow_schedule_to_start_p99", Lower: 0, Upper: 200},
	},
}

var highThroughputPreset = ScalePreset{
	Name:        "high-throughput",
	Description: "High-throughput deployment with aggressive resource allocation and full DSQL plugin features",
	ThroughputRange: frange(500, nil, "Over 500 state transitions per second"),
	SLODefaults: []PresetDefault{
		{"target_state_transitions_per_sec", 1000},
		{"target_workflow_completion_rate", 1000},
		{"max_schedule_to_start_latency_ms", 100},
		{"max_e2e_workflow_latency_ms", 300},
	},
	TopologyDefaults: []PresetDefault{
		{"history.shards", 4096},
		{"history.replicas", 8},
		{"matching.replicas", 6},
		{"frontend.replicas", 4},
		{"worker.replicas", 2},
		{"matching.numTaskqueueReadPartitions", 16},
		{"matching.numTaskqueueWritePartitions", 16},
		{"sdk.worker_count", 16},
	},
	SafetyDerivations: []DerivationRule{
		{"persistence.maxConns", "50", nil},
		{"persistence.maxIdleConns", "persistence.maxConns", []string{"persistence.maxConns"}},
		{"dsql.max_conn_lifetime", "'55m'", nil},
		{"dsql.connection_timeout", "'30s'", nil},
		{"dsql.reservoir_enabled", "True", nil},
		{"dsql.reservoir_target_ready", "50", nil},
		{"dsql.reservoir_base_lifetime", "'11m'", nil},
		{"dsql.reservoir_lifetime_jitter", "'2m'", nil},
		{"dsql.reservoir_guard_window", "'45s'", nil},
		{"dsql.reservoir_inflight_limit", "8", nil},
		{"dsql.connection_rate_limit", "8", nil},
		{"dsql.connection_burst_limit", "40", nil},
		{"dsql.distributed_rate_limiter_enabled", "True", nil},
		{"dsql.distributed_rate_limiter_table", "'temporal-dsql-rate-limiter'", nil},
		{"dsql.token_bucket_enabled", "True", nil},
		{"dsql.token_bucket_rate", "100", nil},
		{"dsql.token_bucket_capacity", "1000", nil},
		{"dsql.slot_block_enabled", "True", nil},
		{"dsql.slot_block_size", "100", nil},
		{"dsql.slot_block_count", "100", nil},
	},
	TuningDerivations: []DerivationRule{
		{"history.persistenceMaxQPS", "10000", nil},
		{"matching.persistenceMaxQPS", "10000", nil},
		{"frontend.persistenceMaxQPS", "10000", nil},
		{"matching.maxTaskBatchSize", "100", nil},
		{"matching.getTasksBatchSize", "1000", nil},
		{"matching.longPollExpirationInterval", "'60s'", nil},
		{"history.timerProcessorMaxPollRPS", "40", nil},
		{"history.timerProcessorUpdateAckInterval", "'15s'", nil},
		{"system.enableActivityEagerExecution", "True", nil},
		{"sdk.max_concurrent_activities", "200", nil},
		{"sdk.max_concurrent_workflow_tasks", "200", nil},
		{"sdk.max_concurrent_local_activities", "200", nil},
		{"sdk.workflow_task_pollers", "32", nil},
		{"sdk.activity_task_pollers", "8", nil},
		{"sdk.sticky_schedule_to_start_timeout", "'5s'", nil},
		{"sdk.disable_eager_activities", "False", nil},
		{"persistence.transactionSizeLimit", "4000000", nil},
		{"history.maxBufferedQueryCount", "1000", nil},
	},
	ExpectedBounds: []TelemetryBound{
		{Metric: "state_transitions_per_sec", Lower: 500, Upper: 10000},
		{Metric: "workflow_schedule_to_start_p99", Lower: 0, Upper: 100},
	},
}

// Presets is the lookup table of every built-in scale preset.
var Presets = map[string]ScalePreset{
	"starter":          starterPreset,
	"mid-scale":        midScalePreset,
	"high-throughput":  highThroughputPreset,
}

// GetPreset looks up a scale preset by name.
func GetPreset(name string) (ScalePreset, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ListPresetNames returns every registered preset name.
func ListPresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	return names
}
