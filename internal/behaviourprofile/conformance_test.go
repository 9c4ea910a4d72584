package behaviourprofile_test

import (
	"testing"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	"github.com/clusterhealth/copilot/internal/compiler"
)

func TestCheckConformance_WithinBoundsIsConforming(t *testing.T) {
	preset, ok := compiler.GetPreset("starter")
	if !ok {
		t.Fatalf("starter preset not registered")
	}
	profile := baseProfile("p")
	profile.Telemetry.Throughput.StateTransitionsPerSec = agg(25)
	profile.Telemetry.Latency.WorkflowScheduleToStartP99 = agg(300)

	report := behaviourprofile.CheckConformance(profile, preset)
	if report.Label != behaviourprofile.Conforming {
		t.Fatalf("expected conforming, got %s with bounds %+v", report.Label, report.Bounds)
	}
	for _, b := range report.Bounds {
		if !b.Pass {
			t.Fatalf("expected every bound to pass, got %+v", b)
		}
	}
}

func TestCheckConformance_OutOfBoundsIsDrifted(t *testing.T) {
	preset, ok := compiler.GetPreset("starter")
	if !ok {
		t.Fatalf("starter preset not registered")
	}
	profile := baseProfile("p")
	profile.Telemetry.Throughput.StateTransitionsPerSec = agg(500) // starter tops out at 50

	report := behaviourprofile.CheckConformance(profile, preset)
	if report.Label != behaviourprofile.Drifted {
		t.Fatalf("expected drifted, got %s", report.Label)
	}

	foundFailure := false
	for _, b := range report.Bounds {
		if b.Metric == "state_transitions_per_sec" && !b.Pass {
			foundFailure = true
		}
	}
	if !foundFailure {
		t.Fatalf("expected the state_transitions_per_sec bound to fail, got %+v", report.Bounds)
	}
}

func TestCheckConformance_OneFailingBoundFailsTheWholeReport(t *testing.T) {
	preset, ok := compiler.GetPreset("mid-scale")
	if !ok {
		t.Fatalf("mid-scale preset not registered")
	}
	profile := baseProfile("p")
	profile.Telemetry.Throughput.StateTransitionsPerSec = agg(150) // within [50,500]
	profile.Telemetry.Latency.WorkflowScheduleToStartP99 = agg(9999) // well outside [0,200]

	report := behaviourprofile.CheckConformance(profile, preset)
	if report.Label != behaviourprofile.Drifted {
		t.Fatalf("expected a single failing bound to drive the whole report to drifted, got %s", report.Label)
	}
}
