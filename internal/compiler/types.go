// Package compiler resolves a Scale Preset, an optional workload
// modifier, and adopter overrides into a fully-derived ConfigProfile —
// the Config Compiler described for the DSQL-backed deployment tuning
// surface. Every parameter the cluster exposes is registered once, in
// one of four classifications (SLO, Topology, Safety, Tuning), and the
// compiler is the only place those four resolve into concrete values.
package compiler

// Classification groups a parameter by who controls its value.
type Classification string

const (
	SLO      Classification = "slo"
	Topology Classification = "topology"
	Safety   Classification = "safety"
	Tuning   Classification = "tuning"
)

// ValueType is the parameter's underlying scalar kind.
type ValueType string

const (
	ValueInt      ValueType = "int"
	ValueFloat    ValueType = "float"
	ValueString   ValueType = "str"
	ValueDuration ValueType = "duration"
	ValueBool     ValueType = "bool"
)

// Unit annotates a parameter's value for display purposes only; it
// never affects resolution.
type Unit string

const (
	UnitPerSec      Unit = "per_sec"
	UnitMillisecond Unit = "ms"
	UnitSecond      Unit = "s"
	UnitMinute      Unit = "m"
	UnitConnections Unit = "connections"
	UnitCount       Unit = "count"
	UnitPercent     Unit = "percent"
	UnitBytes       Unit = "bytes"
)

// OutputTarget names the artifact a parameter is rendered into.
type OutputTarget string

const (
	OutputDynamicConfig  OutputTarget = "dynamic_config"
	OutputEnvVars        OutputTarget = "env_vars"
	OutputWorkerOptions  OutputTarget = "worker_options"
	OutputDSQLPlugin     OutputTarget = "dsql_plugin"
)

// Constraints bounds the legal values an override may supply.
type Constraints struct {
	MinValue      *float64
	MaxValue      *float64
	AllowedValues []any
}

// ParameterEntry is one row of the registry: everything known about a
// parameter independent of any particular compilation.
type ParameterEntry struct {
	Key            string
	Classification Classification
	Description    string
	Rationale      string
	DefaultValue   any
	ValueType      ValueType
	Unit           Unit
	Constraints    *Constraints
	OutputTargets  []OutputTarget
}

// Source records which stage of the pipeline produced a resolved
// parameter's final value.
type Source string

const (
	SourcePreset   Source = "preset"
	SourceModifier Source = "modifier"
	SourceOverride Source = "override"
	SourceDerived  Source = "derived"
	SourceDefault  Source = "default"
)

// ResolvedParameter is one parameter's final value plus where it came
// from, as emitted by a single compilation.
type ResolvedParameter struct {
	Key            string
	Value          any
	Classification Classification
	Source         Source
}

// Overrides is the adopter-supplied parameter map that takes highest
// precedence in the SLO, Topology, and Safety resolution stages. The
// Tuning stage does not consult it: an override naming a Tuning key
// passes validation but leaves the derived value unchanged.
type Overrides struct {
	Values map[string]any
}

func NewOverrides() Overrides {
	return Overrides{Values: map[string]any{}}
}
