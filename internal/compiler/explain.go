package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clusterhealth/copilot/internal/guardrail"
)

// KeyExplanation is the level-1 explanation: one parameter, its
// registered metadata, and the value it resolved to.
type KeyExplanation struct {
	Key            string
	Classification Classification
	Value          any
	Description    string
	Rationale      string
	Source         Source
}

func (e KeyExplanation) ToText() string {
	return fmt.Sprintf("%s = %v (%s)\n  %s\n  Why: %s", e.Key, e.Value, e.Classification, e.Description, e.Rationale)
}

func (e KeyExplanation) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LockedParam is one Safety parameter a preset derives without
// adopter input, paired with the reason it is locked.
type LockedParam struct {
	Key    string
	Value  any
	Reason string
}

// PresetExplanation is the level-2 explanation: a preset's full
// reasoning chain independent of any particular compilation.
type PresetExplanation struct {
	PresetName          string
	Modifier            string
	SLOTargets          []ResolvedParameter
	TopologyDerivation  []string
	LockedSafetyParams  []LockedParam
	ReasoningNarrative  string
}

func (e PresetExplanation) ToText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", e.ReasoningNarrative)
	b.WriteString("SLO targets:\n")
	for _, p := range e.SLOTargets {
		fmt.Fprintf(&b, "  %s = %v\n", p.Key, p.Value)
	}
	b.WriteString("\nTopology derivation:\n")
	for _, step := range e.TopologyDerivation {
		fmt.Fprintf(&b, "  %s\n", step)
	}
	b.WriteString("\nLocked safety parameters:\n")
	for _, lp := range e.LockedSafetyParams {
		fmt.Fprintf(&b, "  %s = %v — %s\n", lp.Key, lp.Value, lp.Reason)
	}
	return b.String()
}

func (e PresetExplanation) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// OverrideDetail is one adopter override that changed a resolved
// value away from what the preset alone would have produced.
type OverrideDetail struct {
	Key            string
	PresetValue    any
	OverrideValue  any
	Classification Classification
}

// ProfileExplanation is the level-3 explanation: a fully compiled
// profile's composition — which overrides moved which values, and
// which guard rails fired against it.
type ProfileExplanation struct {
	BasePreset             string
	Modifier               string
	OverridesApplied       []OverrideDetail
	GuardRailsFired        []guardrail.Result
	DerivationChains       []Trace
	CompositionNarrative   string
}

func (e ProfileExplanation) ToText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.CompositionNarrative)
	if len(e.OverridesApplied) > 0 {
		b.WriteString("\nOverrides:\n")
		for _, o := range e.OverridesApplied {
			fmt.Fprintf(&b, "  %s: %v -> %v\n", o.Key, o.PresetValue, o.OverrideValue)
		}
	}
	if len(e.GuardRailsFired) > 0 {
		b.WriteString("\nGuard rails:\n")
		for _, r := range e.GuardRailsFired {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", r.Severity, r.RuleName, r.Message)
		}
	}
	return b.String()
}

func (e ProfileExplanation) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExplainKey explains one parameter's resolved value in the context of
// an already-compiled profile.
func (c *Compiler) ExplainKey(key string, profile *Profile) (*KeyExplanation, error) {
	entry, ok := c.registry.Get(key)
	if !ok {
		return nil, &UnknownParameterError{Key: key}
	}

	value := entry.DefaultValue
	source := SourceDefault
	if profile != nil {
		if p, ok := profile.GetParam(key); ok {
			value = p.Value
			source = p.Source
		}
	}

	return &KeyExplanation{
		Key:            key,
		Classification: entry.Classification,
		Value:          value,
		Description:    entry.Description,
		Rationale:      entry.Rationale,
		Source:         source,
	}, nil
}

// ExplainPreset explains a preset's reasoning chain with no overrides
// applied.
func (c *Compiler) ExplainPreset(presetName string, modifierName string) (*PresetExplanation, error) {
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

	var topologySteps []string
	for _, p := range resolved[Topology] {
		entry, _ := c.registry.Get(p.Key)
		topologySteps = append(topologySteps, fmt.Sprintf("%s = %v — %s", p.Key, p.Value, entry.Rationale))
	}

	var locked []LockedParam
	for _, p := range resolved[Safety] {
		entry, ok := c.registry.Get(p.Key)
		reason := "Auto-derived from preset"
		if ok {
			reason = entry.Rationale
		}
		locked = append(locked, LockedParam{Key: p.Key, Value: p.Value, Reason: reason})
	}

	var narrative []string
	narrative = append(narrative, fmt.Sprintf("The '%s' preset targets %s.", preset.Name, preset.ThroughputRange.Description))
	if modifier != nil {
		narrative = append(narrative, fmt.Sprintf("The '%s' modifier adjusts %d parameters for %s.", modifier.Name, len(modifier.Adjustments), modifier.Description))
	}
	narrative = append(narrative, fmt.Sprintf("Safety parameters (%d) are locked to values derived from the preset's throughput target and topology.", len(locked)))

	return &PresetExplanation{
		PresetName:         preset.Name,
		Modifier:           modifierName,
		SLOTargets:         resolved[SLO],
		TopologyDerivation: topologySteps,
		LockedSafetyParams: locked,
		ReasoningNarrative: strings.Join(narrative, " "),
	}, nil
}

// ExplainProfile explains a fully compiled profile's composition:
// which overrides moved which values away from the preset baseline,
// and which guard rails fired against it.
func (c *Compiler) ExplainProfile(ctx context.Context, profile *Profile) (*ProfileExplanation, error) {
	preset, ok := GetPreset(profile.PresetName)
	if !ok {
		return nil, &UnknownPresetError{Name: profile.PresetName}
	}

	var modifier *Modifier
	if profile.Modifier != "" {
		if m, ok := GetModifier(profile.Modifier); ok {
			modifier = &m
		}
	}

	var trace []Trace
	baseResolved := c.resolveAll(preset, modifier, NewOverrides(), &trace)

	var overridesApplied []OverrideDetail
	for key, overrideValue := range profile.Overrides.Values {
		entry, ok := c.registry.Get(key)
		if !ok {
			continue
		}
		baseValue := overrideValue
		for _, bp := range baseResolved[entry.Classification] {
			if bp.Key == key {
				baseValue = bp.Value
				break
			}
		}
		if fmt.Sprint(baseValue) != fmt.Sprint(overrideValue) {
			overridesApplied = append(overridesApplied, OverrideDetail{
				Key: key, PresetValue: baseValue, OverrideValue: overrideValue, Classification: entry.Classification,
			})
		}
	}

	guardRailsFired, err := c.guardRailEngine.Evaluate(ctx, buildGuardRailParams(profile))
	if err != nil {
		return nil, fmt.Errorf("compiler: evaluate guard rails: %w", err)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Compiled from preset '%s'.", profile.PresetName))
	if profile.Modifier != "" {
		parts = append(parts, fmt.Sprintf("Workload modifier '%s' applied.", profile.Modifier))
	}
	if len(overridesApplied) > 0 {
		parts = append(parts, fmt.Sprintf("%d override(s) changed values from preset defaults.", len(overridesApplied)))
	}
	if len(guardRailsFired) > 0 {
		var warnings, errs int
		for _, r := range guardRailsFired {
			if r.Severity == guardrail.SeverityWarning {
				warnings++
			} else {
				errs++
			}
		}
		if warnings > 0 {
			parts = append(parts, fmt.Sprintf("%d warning(s) noted.", warnings))
		}
		if errs > 0 {
			parts = append(parts, fmt.Sprintf("%d error(s) detected.", errs))
		}
	}

	return &ProfileExplanation{
		BasePreset:           profile.PresetName,
		Modifier:             profile.Modifier,
		OverridesApplied:     overridesApplied,
		GuardRailsFired:      guardRailsFired,
		DerivationChains:     trace,
		CompositionNarrative: strings.Join(parts, " "),
	}, nil
}
