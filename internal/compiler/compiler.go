package compiler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clusterhealth/copilot/internal/guardrail"
)

// PresetSummary is a short, listable description of a scale preset.
type PresetSummary struct {
	Name            string
	Description     string
	ThroughputRange ThroughputRange
}

// PresetDescription is a preset's fully-resolved parameter set with no
// overrides and no guard rail evaluation — what compiling the preset
// alone would produce.
type PresetDescription struct {
	Name            string
	Description     string
	ThroughputRange ThroughputRange
	SLOParams       []ResolvedParameter
	TopologyParams  []ResolvedParameter
	SafetyParams    []ResolvedParameter
	TuningParams    []ResolvedParameter
}

// Compiler resolves a preset, an optional modifier, and overrides into
// a Result. It is the only place the four parameter classifications
// resolve into concrete values.
type Compiler struct {
	registry            *Registry
	guardRailEngine     *guardrail.Engine
	temporalServerVer   string
	dsqlPluginVer       string
	compilerVer         string
}

// Option customizes a Compiler at construction time.
type Option func(*Compiler)

// WithVersions overrides the version strings stamped onto every
// compiled profile.
func WithVersions(temporalServer, dsqlPlugin, compilerVersion string) Option {
	return func(c *Compiler) {
		c.temporalServerVer = temporalServer
		c.dsqlPluginVer = dsqlPlugin
		c.compilerVer = compilerVersion
	}
}

// NewCompiler builds a Compiler over registry, using engine to run
// guard rails at the end of every compilation.
func NewCompiler(registry *Registry, engine *guardrail.Engine, opts ...Option) *Compiler {
	c := &Compiler{
		registry:          registry,
		guardRailEngine:   engine,
		temporalServerVer: "1.26.2",
		dsqlPluginVer:     "1.26.2",
		compilerVer:       "0.1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile resolves preset + modifier + overrides into a full Result.
// It halts with a *CompilationError when any guard rail produces an
// error-level finding — no artifact is emitted for a profile a guard
// rail has rejected.
func (c *Compiler) Compile(ctx context.Context, presetName string, modifierName string, overrides Overrides) (*Result, error) {
	preset, ok := GetPreset(presetName)
	if !ok {
		return nil, &UnknownPresetError{Name: presetName}
	}

	var modifier *Modifier
	if modifierName != "" {
		m, ok := GetModifier(modifierName)
		if !ok {
			return nil, &UnknownModifierError{Name: modifierName}
		}
		modifier = &m
	}

	if overrides.Values == nil {
		overrides = NewOverrides()
	}
	if err := c.validateOverrides(overrides); err != nil {
		return nil, err
	}

	var trace []Trace
	resolved := c.resolveAll(preset, modifier, overrides, &trace)

	profile := Profile{
		PresetName:            presetName,
		Modifier:              modifierName,
		Overrides:             overrides,
		SLOParams:             resolved[SLO],
		TopologyParams:        resolved[Topology],
		SafetyParams:          resolved[Safety],
		TuningParams:          resolved[Tuning],
		TemporalServerVersion: c.temporalServerVer,
		DSQLPluginVersion:     c.dsqlPluginVer,
		CompiledAt:            time.Now().UTC().Format(time.RFC3339Nano),
		CompilerVersion:       c.compilerVer,
	}

	guardRailResults, err := c.guardRailEngine.Evaluate(ctx, buildGuardRailParams(&profile))
	if err != nil {
		return nil, fmt.Errorf("compiler: evaluate guard rails: %w", err)
	}

	var errMessages []string
	for _, r := range guardRailResults {
		if r.Severity == guardrail.SeverityError {
			errMessages = append(errMessages, r.Message)
		}
	}
	if len(errMessages) > 0 {
		return nil, &CompilationError{Messages: errMessages}
	}

	dynamicConfigYAML, err := c.emitDynamicConfigYAML(&profile)
	if err != nil {
		return nil, fmt.Errorf("compiler: emit dynamic config: %w", err)
	}

	return &Result{
		Profile:           profile,
		DynamicConfigYAML: dynamicConfigYAML,
		DSQLPluginConfig:  buildDSQLPluginConfig(&profile),
		GuardRailResults:  guardRailResults,
		Trace:             trace,
		WhySection:        generateWhySection(&profile, preset, modifier, overrides),
	}, nil
}

func (c *Compiler) validateOverrides(overrides Overrides) error {
	for key, value := range overrides.Values {
		entry, ok := c.registry.Get(key)
		if !ok {
			return &UnknownParameterError{Key: key}
		}
		if entry.Constraints == nil {
			continue
		}
		if f, ok := asFloat(value); ok {
			if entry.Constraints.MinValue != nil && f < *entry.Constraints.MinValue {
				return &ConstraintViolationError{Key: key, Value: value, Reason: fmt.Sprintf("is below minimum (%v)", *entry.Constraints.MinValue)}
			}
			if entry.Constraints.MaxValue != nil && f > *entry.Constraints.MaxValue {
				return &ConstraintViolationError{Key: key, Value: value, Reason: fmt.Sprintf("exceeds maximum (%v)", *entry.Constraints.MaxValue)}
			}
		}
		if entry.Constraints.AllowedValues != nil && !containsValue(entry.Constraints.AllowedValues, value) {
			return &ConstraintViolationError{Key: key, Value: value, Reason: fmt.Sprintf("not in allowed values: %v", entry.Constraints.AllowedValues)}
		}
	}
	return nil
}

// resolveAll implements the pipeline's four resolution stages: SLO and
// Topology resolve preset default -> modifier (topology only) ->
// override; Safety and Tuning resolve through the preset's derivation
// rules, each rule able to reference any key derived before it, with
// overrides (Safety) and modifier adjustments (Tuning) applied on top.
func (c *Compiler) resolveAll(preset ScalePreset, modifier *Modifier, overrides Overrides, trace *[]Trace) map[Classification][]ResolvedParameter {
	resolved := map[Classification][]ResolvedParameter{
		SLO: nil, Topology: nil, Safety: nil, Tuning: nil,
	}

	presetValues := map[string]any{}
	for _, d := range preset.SLODefaults {
		presetValues[d.Key] = d.Value
	}
	for _, d := range preset.TopologyDefaults {
		presetValues[d.Key] = d.Value
	}

	for _, entry := range c.registry.ListByClassification(SLO) {
		baseValue, inPreset := lookup(presetValues, entry.Key, entry.DefaultValue)
		finalValue, isOverride := lookup(overrides.Values, entry.Key, baseValue)
		source := SourceDefault
		chain := "registry_default"
		if inPreset {
			source = SourcePreset
			chain = "preset:" + preset.Name
		}
		if isOverride {
			source = SourceOverride
		}
		resolved[SLO] = append(resolved[SLO], ResolvedParameter{Key: entry.Key, Value: finalValue, Classification: SLO, Source: source})
		*trace = append(*trace, Trace{ParameterKey: entry.Key, Source: source, BaseValue: baseValue, FinalValue: finalValue, DerivationChain: []string{chain}})
	}

	for _, entry := range c.registry.ListByClassification(Topology) {
		baseValue, inPreset := lookup(presetValues, entry.Key, entry.DefaultValue)
		var chain []string
		if inPreset {
			chain = []string{"preset:" + preset.Name}
		} else {
			chain = []string{"registry_default"}
		}

		source := SourceDefault
		switch {
		case inPreset:
			source = SourcePreset
		}
		if modifier != nil {
			if v, ok := modifier.Adjustments[entry.Key]; ok {
				baseValue = v
				chain = append(chain, "modifier:"+modifier.Name)
				source = SourceModifier
			}
		}
		finalValue := baseValue
		if v, ok := overrides.Values[entry.Key]; ok {
			finalValue = v
			source = SourceOverride
		}

		resolved[Topology] = append(resolved[Topology], ResolvedParameter{Key: entry.Key, Value: finalValue, Classification: Topology, Source: source})
		*trace = append(*trace, Trace{ParameterKey: entry.Key, Source: source, BaseValue: baseValue, FinalValue: finalValue, DerivationChain: chain})
	}

	derivedContext := map[string]any{}
	for _, rule := range preset.SafetyDerivations {
		value := evaluateExpression(rule.Expression, derivedContext)
		finalValue := value
		source := SourceDerived
		if v, ok := overrides.Values[rule.Key]; ok {
			finalValue = v
			source = SourceOverride
		}
		derivedContext[rule.Key] = finalValue
		resolved[Safety] = append(resolved[Safety], ResolvedParameter{Key: rule.Key, Value: finalValue, Classification: Safety, Source: source})
		chain := []string{"safety_rule:" + rule.Expression}
		if len(rule.DependsOn) > 0 {
			chain = append(chain, "depends_on:"+strings.Join(rule.DependsOn, ","))
		}
		*trace = append(*trace, Trace{ParameterKey: rule.Key, Source: source, BaseValue: value, FinalValue: finalValue, DerivationChain: chain})
	}

	for _, rule := range preset.TuningDerivations {
		value := evaluateExpression(rule.Expression, derivedContext)
		source := SourceDerived
		if modifier != nil {
			if v, ok := modifier.Adjustments[rule.Key]; ok {
				value = v
				source = SourceModifier
			}
		}
		derivedContext[rule.Key] = value
		resolved[Tuning] = append(resolved[Tuning], ResolvedParameter{Key: rule.Key, Value: value, Classification: Tuning, Source: source})
		*trace = append(*trace, Trace{ParameterKey: rule.Key, Source: source, BaseValue: value, FinalValue: value, DerivationChain: []string{"tuning_rule:" + rule.Expression}})
	}

	return resolved
}

func lookup(m map[string]any, key string, fallback any) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	return fallback, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsValue(allowed []any, v any) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func (c *Compiler) emitDynamicConfigYAML(profile *Profile) (string, error) {
	config := map[string][]map[string]any{}
	for _, param := range profile.AllParams() {
		entry, ok := c.registry.Get(param.Key)
		if !ok {
			continue
		}
		for _, target := range entry.OutputTargets {
			if target == OutputDynamicConfig {
				config[param.Key] = []map[string]any{{"value": param.Value, "constraints": map[string]any{}}}
				break
			}
		}
	}

	out, err := yaml.Marshal(config)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func buildDSQLPluginConfig(profile *Profile) DSQLPluginConfig {
	get := func(key string, fallback any) any {
		if p, ok := profile.GetParam(key); ok {
			return p.Value
		}
		return fallback
	}
	asStr := func(v any) string {
		s, _ := v.(string)
		return s
	}
	asBool := func(v any) bool {
		b, _ := v.(bool)
		return b
	}
	asInt := func(v any) int {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		default:
			return 0
		}
	}

	tokenBucketEnabled := asBool(get("dsql.token_bucket_enabled", false))
	slotBlockEnabled := asBool(get("dsql.slot_block_enabled", false))

	cfg := DSQLPluginConfig{
		ReservoirEnabled:              asBool(get("dsql.reservoir_enabled", false)),
		ReservoirTargetReady:          asInt(get("dsql.reservoir_target_ready", 50)),
		ReservoirBaseLifetimeMin:      parseDurationMinutes(asStr(get("dsql.reservoir_base_lifetime", "11m"))),
		ReservoirLifetimeJitterMin:    parseDurationMinutes(asStr(get("dsql.reservoir_lifetime_jitter", "2m"))),
		ReservoirGuardWindowSec:       parseDurationSeconds(asStr(get("dsql.reservoir_guard_window", "45s"))),
		ReservoirInflightLimit:        asInt(get("dsql.reservoir_inflight_limit", 8)),
		MaxConns:                      asInt(get("persistence.maxConns", 50)),
		MaxIdleConns:                  asInt(get("persistence.maxIdleConns", 50)),
		MaxConnLifetimeMin:            parseDurationMinutes(asStr(get("dsql.max_conn_lifetime", "55m"))),
		ConnectionRateLimit:           asInt(get("dsql.connection_rate_limit", 10)),
		ConnectionBurstLimit:          asInt(get("dsql.connection_burst_limit", 100)),
		DistributedRateLimiterEnabled: asBool(get("dsql.distributed_rate_limiter_enabled", false)),
		DistributedRateLimiterTable:   asStr(get("dsql.distributed_rate_limiter_table", "")),
		TokenBucketEnabled:            tokenBucketEnabled,
		SlotBlockEnabled:              slotBlockEnabled,
	}
	if tokenBucketEnabled {
		rate := asInt(get("dsql.token_bucket_rate", 100))
		capacity := asInt(get("dsql.token_bucket_capacity", 1000))
		cfg.TokenBucketRate = &rate
		cfg.TokenBucketCapacity = &capacity
	}
	if slotBlockEnabled {
		size := asInt(get("dsql.slot_block_size", 100))
		count := asInt(get("dsql.slot_block_count", 100))
		cfg.SlotBlockSize = &size
		cfg.SlotBlockCount = &count
	}
	return cfg
}

// buildGuardRailParams flattens a profile's resolved parameters into
// the map the guard rail policy expects, adding a "_sec" companion for
// every duration-valued parameter the policy needs as a number — Rego
// has no duration-string parsing of its own.
func buildGuardRailParams(profile *Profile) map[string]any {
	params := map[string]any{}
	for _, p := range profile.AllParams() {
		params[p.Key] = p.Value
	}
	if v, ok := params["dsql.reservoir_lifetime_jitter"].(string); ok {
		params["dsql.reservoir_lifetime_jitter_sec"] = parseDurationSeconds(v)
	}
	if v, ok := params["sdk.sticky_schedule_to_start_timeout"].(string); ok {
		params["sdk.sticky_schedule_to_start_timeout_sec"] = parseDurationSeconds(v)
	}
	return params
}

func generateWhySection(profile *Profile, preset ScalePreset, modifier *Modifier, overrides Overrides) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Configuration compiled from preset '%s'", preset.Name))
	lines = append(lines, fmt.Sprintf("  Target: %s", preset.ThroughputRange.Description))

	if modifier != nil {
		lines = append(lines, fmt.Sprintf("  Workload modifier: %s — %s", modifier.Name, modifier.Description))
	}

	if len(overrides.Values) > 0 {
		lines = append(lines, fmt.Sprintf("  Overrides applied: %d parameter(s)", len(overrides.Values)))
		keys := make([]string, 0, len(overrides.Values))
		for k := range overrides.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("    %s = %v", k, overrides.Values[k]))
		}
	}

	lines = append(lines, "")
	lines = append(lines, "Key derived values:")

	for _, param := range profile.SafetyParams {
		switch param.Key {
		case "persistence.maxConns", "dsql.reservoir_enabled", "dsql.distributed_rate_limiter_enabled":
			lines = append(lines, fmt.Sprintf("  %s = %v (source: %s)", param.Key, param.Value, param.Source))
		}
	}
	for _, param := range profile.TuningParams {
		if strings.Contains(param.Key, "persistenceMaxQPS") {
			lines = append(lines, fmt.Sprintf("  %s = %v (source: %s)", param.Key, param.Value, param.Source))
		}
	}

	return strings.Join(lines, "\n")
}

// ListPresets returns a summary of every built-in scale preset.
func (c *Compiler) ListPresets() []PresetSummary {
	names := ListPresetNames()
	sort.Strings(names)
	out := make([]PresetSummary, 0, len(names))
	for _, name := range names {
		p := Presets[name]
		out = append(out, PresetSummary{Name: p.Name, Description: p.Description, ThroughputRange: p.ThroughputRange})
	}
	return out
}

// DescribePreset resolves preset + modifier with no overrides and no
// guard rail run — what the preset alone would produce.
func (c *Compiler) DescribePreset(presetName string, modifierName string) (*PresetDescription, error) {
	preset, ok := GetPreset(presetName)
	if !ok {
		return nil, &UnknownPresetError{Name: presetName}
	}
	var modifier *Modifier
	if modifierName != "" {
		m, ok := GetModifier(modifierName)
		if !ok {
			return nil, &UnknownModifierError{Name: modifierName}
		}
		modifier = &m
	}

	var trace []Trace
	resolved := c.resolveAll(preset, modifier, NewOverrides(), &trace)

	return &PresetDescription{
		Name:            preset.Name,
		Description:     preset.Description,
		ThroughputRange: preset.ThroughputRange,
		SLOParams:       resolved[SLO],
		TopologyParams:  resolved[Topology],
		SafetyParams:    resolved[Safety],
		TuningParams:    resolved[Tuning],
	}, nil
}
