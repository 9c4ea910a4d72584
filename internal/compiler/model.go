package compiler

import "github.com/clusterhealth/copilot/internal/guardrail"

// Profile is a fully-resolved configuration: every SLO, Topology,
// Safety, and Tuning parameter the registry knows about, each with
// the value the pipeline settled on and where that value came from.
type Profile struct {
	PresetName string
	Modifier   string
	Overrides  Overrides

	SLOParams      []ResolvedParameter
	TopologyParams []ResolvedParameter
	SafetyParams   []ResolvedParameter
	TuningParams   []ResolvedParameter

	TemporalServerVersion string
	DSQLPluginVersion     string
	CompiledAt            string
	CompilerVersion       string
}

// GetParam returns the resolved parameter for key, searching every
// classification in SLO, Topology, Safety, Tuning order.
func (p *Profile) GetParam(key string) (ResolvedParameter, bool) {
	for _, list := range [][]ResolvedParameter{p.SLOParams, p.TopologyParams, p.SafetyParams, p.TuningParams} {
		for _, rp := range list {
			if rp.Key == key {
				return rp, true
			}
		}
	}
	return ResolvedParameter{}, false
}

// AllParams returns every resolved parameter across all four
// classifications.
func (p *Profile) AllParams() []ResolvedParameter {
	out := make([]ResolvedParameter, 0, len(p.SLOParams)+len(p.TopologyParams)+len(p.SafetyParams)+len(p.TuningParams))
	out = append(out, p.SLOParams...)
	out = append(out, p.TopologyParams...)
	out = append(out, p.SafetyParams...)
	out = append(out, p.TuningParams...)
	return out
}

// ParamsByClassification returns the resolved parameter list for one
// classification.
func (p *Profile) ParamsByClassification(c Classification) []ResolvedParameter {
	switch c {
	case SLO:
		return p.SLOParams
	case Topology:
		return p.TopologyParams
	case Safety:
		return p.SafetyParams
	case Tuning:
		return p.TuningParams
	default:
		return nil
	}
}

// Trace records one parameter's journey through the pipeline: the
// value each stage would have produced and the chain of reasons that
// led to the final value.
type Trace struct {
	ParameterKey    string
	Source          Source
	BaseValue       any
	FinalValue      any
	DerivationChain []string
}

// DSQLPluginConfig is the subset of resolved Safety parameters shaped
// for direct consumption by the DSQL connection-pool plugin.
type DSQLPluginConfig struct {
	ReservoirEnabled               bool
	ReservoirTargetReady           int
	ReservoirBaseLifetimeMin       float64
	ReservoirLifetimeJitterMin     float64
	ReservoirGuardWindowSec        float64
	ReservoirInflightLimit         int
	MaxConns                       int
	MaxIdleConns                   int
	MaxConnLifetimeMin             float64
	ConnectionRateLimit            int
	ConnectionBurstLimit           int
	DistributedRateLimiterEnabled  bool
	DistributedRateLimiterTable    string
	TokenBucketEnabled             bool
	TokenBucketRate                *int
	TokenBucketCapacity            *int
	SlotBlockEnabled               bool
	SlotBlockSize                  *int
	SlotBlockCount                 *int
}

// RenderedSnippet is a generated config fragment destined for an SDK
// or platform adapter. Adapter rendering itself lives outside this
// package; the compiler only reserves the slot in Result.
type RenderedSnippet struct {
	Language string
	Filename string
	Content  string
}

// Result is everything one call to Compile produces: the resolved
// profile, its rendered artifacts, the guard rail findings, and the
// trace and narrative used to explain it.
type Result struct {
	Profile           Profile
	DynamicConfigYAML string
	DSQLPluginConfig  DSQLPluginConfig
	SDKSnippets       []RenderedSnippet
	PlatformSnippets  []RenderedSnippet
	GuardRailResults  []guardrail.Result
	Trace             []Trace
	WhySection        string
}
