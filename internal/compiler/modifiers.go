package compiler

// Modifier is a named set of parameter adjustments layered over a
// preset's topology and tuning defaults to fit a dominant workload
// shape, without touching the preset's safety derivations.
type Modifier struct {
	Name        string
	Description string
	Adjustments map[string]any
}

var simpleCRUDModifier = Modifier{
	Name:        "simple-crud",
	Description: "Short-lived workflows with 1-2 activities; optimised for low latency via eager execution",
	Adjustments: map[string]any{
		"system.enableActivityEagerExecution":  true,
		"sdk.disable_eager_activities":         false,
		"matching.numTaskqueueReadPartitions":  4,
		"matching.numTaskqueueWritePartitions": 4,
		"sdk.max_concurrent_activities":        100,
		"sdk.max_concurrent_workflow_tasks":    100,
	},
}

var orchestratorModifier = Modifier{
	Name:        "orchestrator",
	Description: "Workflows that coordinate child workflows and multiple activity types; balanced dispatch",
	Adjustments: map[string]any{
		"matching.numTaskqueueReadPartitions":  8,
		"matching.numTaskqueueWritePartitions": 8,
		"sdk.max_concurrent_workflow_tasks":    150,
		"sdk.max_concurrent_activities":        150,
		"sdk.workflow_task_pollers":            16,
		"sdk.activity_task_pollers":            8,
	},
}

var batchProcessorModifier = Modifier{
	Name:        "batch-processor",
	Description: "High-volume activity processing with many parallel activities per workflow",
	Adjustments: map[string]any{
		"matching.numTaskqueueReadPartitions":  16,
		"matching.numTaskqueueWritePartitions": 16,
		"sdk.max_concurrent_activities":        500,
		"sdk.max_concurrent_local_activities":  500,
		"sdk.activity_task_pollers":            16,
		"sdk.workflow_task_pollers":            16,
	},
}

var longRunningModifier = Modifier{
	Name:        "long-running",
	Description: "Workflows that run for minutes to hours; optimised for sticky execution and state caching",
	Adjustments: map[string]any{
		"sdk.sticky_schedule_to_start_timeout": "10s",
		"matching.numTaskqueueReadPartitions":  4,
		"matching.numTaskqueueWritePartitions": 4,
		"sdk.workflow_task_pollers":            8,
		"sdk.activity_task_pollers":            4,
	},
}

// Modifiers is the lookup table of every built-in workload modifier.
var Modifiers = map[string]Modifier{
	"simple-crud":      simpleCRUDModifier,
	"orchestrator":     orchestratorModifier,
	"batch-processor":  batchProcessorModifier,
	"long-running":     longRunningModifier,
}

// GetModifier looks up a workload modifier by name.
func GetModifier(name string) (Modifier, bool) {
	m, ok := Modifiers[name]
	return m, ok
}

// ListModifierNames returns every registered modifier name.
func ListModifierNames() []string {
	names := make([]string, 0, len(Modifiers))
	for n := range Modifiers {
		names = append(names, n)
	}
	return names
}
