package compiler_test

import (
	"context"
	"testing"

	"github.com/clusterhealth/copilot/internal/compiler"
	"github.com/clusterhealth/copilot/internal/guardrail"
)

func newCompiler(t *testing.T) *compiler.Compiler {
	t.Helper()
	engine, err := guardrail.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return compiler.NewCompiler(compiler.BuildDefaultRegistry(), engine)
}

func TestCompile_EachPresetCompilesClean(t *testing.T) {
	c := newCompiler(t)
	for _, name := range compiler.ListPresetNames() {
		name := name
		t.Run(name, func(t *testing.T) {
			result, err := c.Compile(context.Background(), name, "", compiler.NewOverrides())
			if err != nil {
				t.Fatalf("Compile(%s): %v", name, err)
			}
			if result.Profile.PresetName != name {
				t.Fatalf("expected preset name %s, got %s", name, result.Profile.PresetName)
			}
			if result.DynamicConfigYAML == "" {
				t.Fatalf("expected non-empty dynamic config yaml")
			}
			if len(result.Profile.AllParams()) == 0 {
				t.Fatalf("expected resolved parameters")
			}
		})
	}
}

func TestCompile_UnknownPreset(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Compile(context.Background(), "does-not-exist", "", compiler.NewOverrides())
	if err == nil {
		t.Fatalf("expected an error for an unknown preset")
	}
	var upErr *compiler.UnknownPresetError
	if !asUnknownPreset(err, &upErr) {
		t.Fatalf("expected *UnknownPresetError, got %T: %v", err, err)
	}
}

func asUnknownPreset(err error, target **compiler.UnknownPresetError) bool {
	if e, ok := err.(*compiler.UnknownPresetError); ok {
		*target = e
		return true
	}
	return false
}

func TestCompile_UnknownModifier(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Compile(context.Background(), "starter", "not-a-modifier", compiler.NewOverrides())
	if err == nil {
		t.Fatalf("expected an error for an unknown modifier")
	}
}

func TestCompile_OverrideOutOfRangeRejected(t *testing.T) {
	c := newCompiler(t)
	overrides := compiler.NewOverrides()
	overrides.Values["persistence.maxConns"] = 10000
	_, err := c.Compile(context.Background(), "starter", "", overrides)
	if err == nil {
		t.Fatalf("expected a constraint violation for an out-of-range override")
	}
}

func TestCompile_UnknownOverrideKeyRejected(t *testing.T) {
	c := newCompiler(t)
	overrides := compiler.NewOverrides()
	overrides.Values["not.a.real.key"] = 1
	_, err := c.Compile(context.Background(), "starter", "", overrides)
	if err == nil {
		t.Fatalf("expected an error for an unknown override key")
	}
}

func TestCompile_OverrideWins(t *testing.T) {
	c := newCompiler(t)
	overrides := compiler.NewOverrides()
	overrides.Values["target_state_transitions_per_sec"] = 42
	result, err := c.Compile(context.Background(), "starter", "", overrides)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p, ok := result.Profile.GetParam("target_state_transitions_per_sec")
	if !ok {
		t.Fatalf("expected target_state_transitions_per_sec to be resolved")
	}
	if p.Value != 42 {
		t.Fatalf("expected override to win, got %v", p.Value)
	}
	if p.Source != compiler.SourceOverride {
		t.Fatalf("expected source override, got %s", p.Source)
	}
}

func TestCompile_ModifierAdjustsTopologyNotSafety(t *testing.T) {
	c := newCompiler(t)
	result, err := c.Compile(context.Background(), "mid-scale", "batch-processor", compiler.NewOverrides())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p, ok := result.Profile.GetParam("matching.numTaskqueueReadPartitions")
	if !ok || p.Value != 16 {
		t.Fatalf("expected modifier to set read partitions to 16, got %+v", p)
	}
	if p.Source != compiler.SourceModifier {
		t.Fatalf("expected source modifier, got %s", p.Source)
	}
	s, ok := result.Profile.GetParam("persistence.maxConns")
	if !ok || s.Value != 50 || s.Source != compiler.SourceDerived {
		t.Fatalf("expected safety param persistence.maxConns to stay derived at 50, got %+v", s)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	c := newCompiler(t)
	r1, err := c.Compile(context.Background(), "high-throughput", "orchestrator", compiler.NewOverrides())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r2, err := c.Compile(context.Background(), "high-throughput", "orchestrator", compiler.NewOverrides())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if r1.DynamicConfigYAML != r2.DynamicConfigYAML {
		t.Fatalf("expected deterministic yaml output across repeated compiles")
	}
}

func TestListPresets(t *testing.T) {
	c := newCompiler(t)
	summaries := c.ListPresets()
	if len(summaries) != 3 {
		t.Fatalf("expected 3 presets, got %d", len(summaries))
	}
}

func TestDescribePreset(t *testing.T) {
	c := newCompiler(t)
	desc, err := c.DescribePreset("starter", "")
	if err != nil {
		t.Fatalf("DescribePreset: %v", err)
	}
	if desc.Name != "starter" {
		t.Fatalf("expected starter, got %s", desc.Name)
	}
	if len(desc.SafetyParams) == 0 {
		t.Fatalf("expected safety params to be resolved")
	}
}

func TestExplainKey(t *testing.T) {
	c := newCompiler(t)
	result, err := c.Compile(context.Background(), "starter", "", compiler.NewOverrides())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	explanation, err := c.ExplainKey("persistence.maxConns", &result.Profile)
	if err != nil {
		t.Fatalf("ExplainKey: %v", err)
	}
	if explanation.Classification != compiler.Safety {
		t.Fatalf("expected safety classification, got %s", explanation.Classification)
	}
	if explanation.ToText() == "" {
		t.Fatalf("expected non-empty text rendering")
	}
}

func TestExplainPreset(t *testing.T) {
	c := newCompiler(t)
	explanation, err := c.ExplainPreset("mid-scale", "orchestrator")
	if err != nil {
		t.Fatalf("ExplainPreset: %v", err)
	}
	if len(explanation.LockedSafetyParams) == 0 {
		t.Fatalf("expected locked safety params")
	}
	if explanation.ReasoningNarrative == "" {
		t.Fatalf("expected a narrative")
	}
}

func TestExplainProfile(t *testing.T) {
	c := newCompiler(t)
	overrides := compiler.NewOverrides()
	overrides.Values["target_state_transitions_per_sec"] = 33
	result, err := c.Compile(context.Background(), "starter", "", overrides)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	explanation, err := c.ExplainProfile(context.Background(), &result.Profile)
	if err != nil {
		t.Fatalf("ExplainProfile: %v", err)
	}
	if len(explanation.OverridesApplied) != 1 {
		t.Fatalf("expected exactly one applied override, got %d", len(explanation.OverridesApplied))
	}
}

func TestCompile_ThunderingHerdHaltsCompilation(t *testing.T) {
	c := newCompiler(t)
	overrides := compiler.NewOverrides()
	overrides.Values["dsql.reservoir_lifetime_jitter"] = "0s"
	_, err := c.Compile(context.Background(), "mid-scale", "", overrides)
	if err == nil {
		t.Fatalf("expected thundering herd guard rail to halt compilation")
	}
	var compErr *compiler.CompilationError
	if ce, ok := err.(*compiler.CompilationError); ok {
		compErr = ce
	}
	if compErr == nil {
		t.Fatalf("expected *CompilationError, got %T: %v", err, err)
	}
}
