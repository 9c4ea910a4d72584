package behaviourprofile

import "github.com/clusterhealth/copilot/internal/compiler"

// ConformanceLabel is the pass/fail verdict a profile carries against
// a preset's expected telemetry bounds.
type ConformanceLabel string

const (
	Conforming ConformanceLabel = "conforming"
	Drifted    ConformanceLabel = "drifted"
)

// BoundResult is one expected-bound check against an observed mean.
type BoundResult struct {
	Metric       string
	Lower        float64
	Upper        float64
	ObservedMean float64
	Pass         bool
}

// ConformanceReport is the full result of checking a profile against
// a preset's expected operating ranges.
type ConformanceReport struct {
	PresetName string
	Bounds     []BoundResult
	Label      ConformanceLabel
}

// CheckConformance looks up each metric named in preset.ExpectedBounds
// within profile's flattened telemetry and checks its mean falls
// within the bound. The profile is labelled Conforming only when every
// bound passes — a single failing bound is enough to call it Drifted,
// by design: there is no partial-credit quorum today, though the knob
// is a natural place to add one if an adopter asks for it.
func CheckConformance(profile BehaviourProfile, preset compiler.ScalePreset) ConformanceReport {
	flat := flattenTelemetry(profile)

	results := make([]BoundResult, 0, len(preset.ExpectedBounds))
	allPass := true
	for _, bound := range preset.ExpectedBounds {
		agg, ok := flat[bound.Metric]
		mean := 0.0
		if ok {
			mean = agg.Mean
		}
		pass := ok && mean >= bound.Lower && mean <= bound.Upper
		if !pass {
			allPass = false
		}
		results = append(results, BoundResult{
			Metric:       bound.Metric,
			Lower:        bound.Lower,
			Upper:        bound.Upper,
			ObservedMean: mean,
			Pass:         pass,
		})
	}

	label := Conforming
	if !allPass {
		label = Drifted
	}

	return ConformanceReport{PresetName: preset.Name, Bounds: results, Label: label}
}
