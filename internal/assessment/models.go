// Package assessment defines the immutable assessment record the
// Assessment Pipeline produces: a health state handed down by the
// state machine, explained — never altered — by a narrator.
package assessment

import (
	"time"

	"github.com/clusterhealth/copilot/internal/signal"
)

// Trigger names what caused an assessment to be produced.
type Trigger string

const (
	TriggerStateChange Trigger = "state_change"
	TriggerScheduled   Trigger = "scheduled"
)

// Severity is an issue's severity level.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ActionType names the kind of remediation a SuggestedAction proposes.
type ActionType string

const (
	ActionScale     ActionType = "scale"
	ActionRestart   ActionType = "restart"
	ActionConfigure ActionType = "configure"
	ActionAlert     ActionType = "alert"
)

// SuggestedAction is a narrator-proposed remediation step. Actions are
// suggestions only; nothing in this copilot executes them.
type SuggestedAction struct {
	ActionType    ActionType
	TargetService string
	Description   string
	Confidence    float64 // [0,1]
	Parameters    map[string]any
	RiskLevel     string // low, medium, high
}

// Issue is one narrator-identified problem, with its likely cause and
// proposed remediation.
type Issue struct {
	ID               string
	AssessmentID     string
	Severity         Severity
	Title            string
	Description      string
	LikelyCause      string
	SuggestedActions []SuggestedAction
	RelatedMetrics   []string
	RelatedLogs      []string
	CreatedAt        time.Time
	ResolvedAt       *time.Time
}

// Assessment is the Assessment Pipeline's immutable output: the state
// it was handed, explained, never altered. Created once, persisted
// once, never updated.
type Assessment struct {
	ID        string
	Timestamp time.Time
	Trigger   Trigger

	State             signal.HealthState
	PrimarySnapshot   signal.Primary
	AmplifierSnapshot signal.Amplifier
	Logs              []signal.LogPattern

	Issues            []Issue
	RecommendedActions []SuggestedAction
	Summary           string
}

// TriageOutcome is the triage narrator's tagged-union result: a
// dispatcher must exhaustively switch on its concrete type and must
// never silently fall through to a default case.
type TriageOutcome interface {
	isTriageOutcome()
}

// NoExplanationNeeded means the state requires no narrative at all —
// the pipeline emits a minimal assessment with boilerplate prose.
type NoExplanationNeeded struct{}

func (NoExplanationNeeded) isTriageOutcome() {}

// QuickExplanation carries the triage narrator's one-sentence summary
// and the primary contributing factor, sufficient on its own.
type QuickExplanation struct {
	Summary       string
	PrimaryFactor string
}

func (QuickExplanation) isTriageOutcome() {}

// NeedsDeep means triage could not explain the state cheaply; the
// pipeline must escalate to the deep narrator with retrieval, logs,
// and trend context. ContributingFactors seeds the knowledge-base
// query.
type NeedsDeep struct {
	ContributingFactors []string
}

func (NeedsDeep) isTriageOutcome() {}

// DeepFindings is the deep narrator's structured output. Narrator-
// produced fields (Issues, SuggestedActions, Summary) are preserved
// by the pipeline; authoritative fields (timestamp, state, trigger,
// snapshots) are never part of this type — the narrator cannot
// produce what it is not permitted to decide.
type DeepFindings struct {
	Summary          string
	PrimaryFactor    string
	Issues           []Issue
	SuggestedActions []SuggestedAction
}
