package guardrail_test

import (
	"context"
	"testing"

	"github.com/clusterhealth/copilot/internal/guardrail"
)

func baseParams() map[string]any {
	return map[string]any{
		"persistence.maxConns":                         50,
		"persistence.maxIdleConns":                     50,
		"dsql.reservoir_enabled":                        true,
		"dsql.reservoir_target_ready":                   50,
		"history.replicas":                              6,
		"matching.replicas":                             4,
		"frontend.replicas":                             3,
		"worker.replicas":                               2,
		"matching.numTaskqueueReadPartitions":            8,
		"target_state_transitions_per_sec":              150,
		"sdk.sticky_schedule_to_start_timeout_sec":      0,
		"max_e2e_workflow_latency_ms":                   500,
		"dsql.reservoir_lifetime_jitter_sec":            120,
		"dsql.distributed_rate_limiter_enabled":         false,
		"dsql.distributed_rate_limiter_table":           "",
	}
}

func mustEngine(t *testing.T) *guardrail.Engine {
	t.Helper()
	e, err := guardrail.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEvaluate_CleanProfileHasNoFindings(t *testing.T) {
	e := mustEngine(t)
	results, err := e.Evaluate(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no findings on a clean profile, got %+v", results)
	}
}

func TestEvaluate_MaxIdleMismatch(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["persistence.maxIdleConns"] = 10
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "max_idle_equals_max_conns") {
		t.Fatalf("expected max_idle_equals_max_conns, got %+v", results)
	}
}

func TestEvaluate_ClusterConnectionLimit(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["dsql.reservoir_target_ready"] = 5000
	params["persistence.maxIdleConns"] = 50
	params["persistence.maxConns"] = 50
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "cluster_connection_limit") {
		t.Fatalf("expected cluster_connection_limit, got %+v", results)
	}
}

func TestEvaluate_ThunderingHerd(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["dsql.reservoir_lifetime_jitter_sec"] = 0
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "thundering_herd_risk") {
		t.Fatalf("expected thundering_herd_risk, got %+v", results)
	}
}

func TestEvaluate_ReservoirTargetZero(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["dsql.reservoir_target_ready"] = 0
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "reservoir_target_zero") {
		t.Fatalf("expected reservoir_target_zero, got %+v", results)
	}
}

func TestEvaluate_DistributedRateLimiterTableMissing(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["dsql.distributed_rate_limiter_enabled"] = true
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "distributed_rate_limiter_table_missing") {
		t.Fatalf("expected distributed_rate_limiter_table_missing, got %+v", results)
	}
}

func TestEvaluate_StickyMinimalBenefit(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["sdk.sticky_schedule_to_start_timeout_sec"] = 5
	params["max_e2e_workflow_latency_ms"] = 800
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "sticky_minimal_benefit") {
		t.Fatalf("expected sticky_minimal_benefit, got %+v", results)
	}
}

func TestEvaluate_MatchingPartitionOversized(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["matching.numTaskqueueReadPartitions"] = 64
	params["target_state_transitions_per_sec"] = 50
	results, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !hasRule(results, "matching_partition_oversized") {
		t.Fatalf("expected matching_partition_oversized, got %+v", results)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := mustEngine(t)
	params := baseParams()
	params["persistence.maxIdleConns"] = 10
	params["dsql.reservoir_lifetime_jitter_sec"] = 0

	r1, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	r2, err := e.Evaluate(context.Background(), params)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(r1) != len(r2) {
		t.Fatalf("non-deterministic result count: %d vs %d", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i].RuleName != r2[i].RuleName {
			t.Fatalf("non-deterministic ordering at %d: %s vs %s", i, r1[i].RuleName, r2[i].RuleName)
		}
	}
}

func hasRule(results []guardrail.Result, name string) bool {
	for _, r := range results {
		if r.RuleName == name {
			return true
		}
	}
	return false
}
