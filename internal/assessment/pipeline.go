package assessment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/signal"
)

// TriageNarrator is the cheap narrator's contract, satisfied by
// *narrator.TriageClient in production and a stub in tests.
type TriageNarrator interface {
	Triage(ctx context.Context, state signal.HealthState, p signal.Primary, a signal.Amplifier, trigger string) TriageOutcome
}

// DeepNarrator is the expensive narrator's contract, satisfied by
// *narrator.DeepClient in production.
type DeepNarrator interface {
	Research(ctx context.Context, state signal.HealthState, p signal.Primary, a signal.Amplifier, logs []signal.LogPattern, retrieval []string, history []signal.Snapshot, trigger string) (DeepFindings, error)
}

// AssessmentStore persists a completed Assessment.
type AssessmentStore interface {
	Create(ctx context.Context, a *Assessment) error
}

// SnapshotHistory supplies the recent-signal-history input to the
// deep narrator step.
type SnapshotHistory interface {
	Recent(ctx context.Context, limit int) ([]signal.Snapshot, error)
}

// Pipeline implements the Assessment Pipeline (§4.3): invoke the
// two-stage narrator to explain a state the Health State Machine has
// already decided, then persist the result. It never changes the
// state it is handed.
type Pipeline struct {
	triage TriageNarrator
	deep   DeepNarrator
	kb     *fetch.KBClient
	loki   *fetch.LokiClient
	history SnapshotHistory
	store   AssessmentStore
	logger  *zap.Logger

	logLookback  time.Duration
	historyLimit int
}

// NewPipeline wires the narrator stages and the fetch/store
// dependencies the needs-deep path uses.
func NewPipeline(triage TriageNarrator, deep DeepNarrator, kb *fetch.KBClient, loki *fetch.LokiClient, history SnapshotHistory, store AssessmentStore, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		triage:       triage,
		deep:         deep,
		kb:           kb,
		loki:         loki,
		history:      history,
		store:        store,
		logger:       logger,
		logLookback:  60 * time.Second,
		historyLimit: 10,
	}
}

// Run executes the full pipeline for one trigger and persists the
// resulting Assessment.
func (p *Pipeline) Run(ctx context.Context, now time.Time, state signal.HealthState, snap signal.Snapshot, trigger Trigger) (*Assessment, error) {
	outcome := p.triage.Triage(ctx, state, snap.Primary, snap.Amplifier, string(trigger))

	var a *Assessment
	switch o := outcome.(type) {
	case NoExplanationNeeded:
		a = minimalAssessment(now, state, snap, trigger)
	case QuickExplanation:
		a = quickAssessment(now, state, snap, trigger, o)
	case NeedsDeep:
		var err error
		a, err = p.deepAssessment(ctx, now, state, snap, trigger, o)
		if err != nil {
			p.logger.Warn("deep narrator invocation failed, falling back to minimal assessment",
				logging.NewFields().Component("assessment").Operation("deep").Error(err).Zap()...)
			a = minimalAssessment(now, state, snap, trigger)
		}
	default:
		// TriageOutcome is a closed set of three variants (models.go);
		// a fourth would be a programming error, not a runtime
		// condition to degrade gracefully from.
		panic(fmt.Sprintf("assessment: unhandled TriageOutcome variant %T", outcome))
	}

	if err := p.store.Create(ctx, a); err != nil {
		return a, fmt.Errorf("persist assessment: %w", err)
	}
	return a, nil
}

func minimalAssessment(now time.Time, state signal.HealthState, snap signal.Snapshot, trigger Trigger) *Assessment {
	return &Assessment{
		Timestamp:         now,
		Trigger:           trigger,
		State:             state,
		PrimarySnapshot:   snap.Primary,
		AmplifierSnapshot: snap.Amplifier,
		Logs:              nil,
		Summary:           fmt.Sprintf("Cluster is %s. All signals within normal ranges.", state),
	}
}

func quickAssessment(now time.Time, state signal.HealthState, snap signal.Snapshot, trigger Trigger, o QuickExplanation) *Assessment {
	return &Assessment{
		Timestamp:         now,
		Trigger:           trigger,
		State:             state,
		PrimarySnapshot:   snap.Primary,
		AmplifierSnapshot: snap.Amplifier,
		Logs:              nil,
		Summary:           fmt.Sprintf("%s Primary factor: %s", o.Summary, o.PrimaryFactor),
	}
}

// deepAssessment fetches retrieval context, log patterns, and signal
// history in parallel, invokes the deep narrator, then overwrites the
// authoritative fields on its response per §4.3 step 3 — the narrator
// may hallucinate issue names and prose, but never the state, trigger
// or snapshots the pipeline already knows to be true.
func (p *Pipeline) deepAssessment(ctx context.Context, now time.Time, state signal.HealthState, snap signal.Snapshot, trigger Trigger, o NeedsDeep) (*Assessment, error) {
	var retrieval []string
	var logs []signal.LogPattern
	var history []signal.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.kb != nil {
			retrieval = p.kb.Retrieve(gctx, o.ContributingFactors)
		}
		return nil
	})
	g.Go(func() error {
		if p.loki != nil {
			logs = p.loki.MatchPatterns(gctx, fetch.DefaultLogMatchers, now.Add(-p.logLookback), now)
		}
		return nil
	})
	g.Go(func() error {
		if p.history != nil {
			var err error
			history, err = p.history.Recent(gctx, p.historyLimit)
			if err != nil {
				p.logger.Warn("signal history fetch failed, continuing without it",
					logging.NewFields().Component("assessment").Operation("deep").Error(err).Zap()...)
				history = nil
			}
		}
		return nil
	})
	_ = g.Wait() // each goroutine already degrades its own failure to a zero value

	result, err := p.deep.Research(ctx, state, snap.Primary, snap.Amplifier, logs, retrieval, history, string(trigger))
	if err != nil {
		return nil, err
	}

	return &Assessment{
		Timestamp:           now,
		Trigger:             trigger,
		State:               state,
		PrimarySnapshot:     snap.Primary,
		AmplifierSnapshot:   snap.Amplifier,
		Logs:                logs,
		Issues:              result.Issues,
		RecommendedActions:  result.SuggestedActions,
		Summary:             result.Summary,
	}, nil
}
