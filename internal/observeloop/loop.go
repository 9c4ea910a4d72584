// Package observeloop implements the Observation Loop (§4.2): a
// long-running process that reconciles its state from the last
// persisted assessment on boot, polls signals on a fixed cadence,
// persists snapshots, evaluates the Health State Machine, and starts
// the Assessment Pipeline whenever the state changes.
package observeloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/healthstate"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/signal"
	"github.com/clusterhealth/copilot/internal/store/redisstate"
	"github.com/clusterhealth/copilot/internal/workflowrt"
)

// AssessmentSource is the durable record the loop reconciles its
// boot-time state from. Satisfied by *postgres.AssessmentRepository.
type AssessmentSource interface {
	Latest(ctx context.Context) (*assessment.Assessment, error)
}

// SnapshotStore persists every fetched snapshot for history-window
// consumers (the deep narrator's trend context). Satisfied by
// *postgres.MetricsSnapshotRepository.
type SnapshotStore interface {
	Create(ctx context.Context, snapshot signal.Snapshot) error
}

// Pipeline is the Assessment Pipeline's entry point from the loop's
// point of view, narrow enough that tests can stub it without
// constructing a real *assessment.Pipeline.
type Pipeline interface {
	Run(ctx context.Context, now time.Time, state signal.HealthState, snap signal.Snapshot, trigger assessment.Trigger) (*assessment.Assessment, error)
}

// Loop is a fixed-identity Observation Loop instance. One Loop watches
// one cluster; ID names the Redis keys (sliding window, state cache,
// dedup window) it owns.
type Loop struct {
	ID string

	Prometheus  *fetch.PrometheusClient
	Loki        *fetch.LokiClient
	Thresholds  healthstate.Thresholds
	Snapshots   SnapshotStore
	Assessments AssessmentSource
	State       *redisstate.Client
	Pipeline    Pipeline
	Logger      *zap.Logger

	// Runtime, if set, is used to launch each assessment as a
	// fixed-id child workflow (keyed by trigger and minute, so a launch
	// whose id matches a run still in flight reuses that run) and to
	// register this loop's query handlers. Nil is a valid zero value:
	// the loop calls Pipeline.Run directly and exposes no queries.
	Runtime *workflowrt.Runtime

	// ObservationInterval is the main poll cadence, default 30s (§4.2).
	ObservationInterval time.Duration
	// LogLookback bounds how far back FetchSnapshot's Loki query looks.
	LogLookback time.Duration
	// ScheduledInterval is the coarser cadence at which the loop also
	// runs the Assessment Pipeline regardless of a state change (§4.3:
	// "optionally by a scheduler at a coarser cadence with a
	// deduplication window"). Zero disables scheduled assessments.
	ScheduledInterval time.Duration

	mu      sync.RWMutex
	state   signal.HealthState
	counter int
	window  int
}

// New builds a Loop with the reference cadences (30s observation,
// 10m scheduled reassessment) and WindowCap-sized history.
func New(id string, prom *fetch.PrometheusClient, loki *fetch.LokiClient, snapshots SnapshotStore, assessments AssessmentSource, state *redisstate.Client, pipeline Pipeline, logger *zap.Logger) *Loop {
	return &Loop{
		ID:                  id,
		Prometheus:          prom,
		Loki:                loki,
		Thresholds:          healthstate.DefaultThresholds(),
		Snapshots:           snapshots,
		Assessments:         assessments,
		State:               state,
		Pipeline:            pipeline,
		Logger:              logger,
		ObservationInterval: 30 * time.Second,
		LogLookback:         60 * time.Second,
		ScheduledInterval:   10 * time.Minute,
		state:               signal.Happy,
	}
}

// Run reconciles boot-time state and then loops until ctx is
// cancelled, evaluating the state machine once per ObservationInterval.
// It returns nil on a clean shutdown (ctx cancellation); nothing short
// of that stops it — per-iteration fetch/persist errors are logged and
// the loop continues (§4.2's failure policy).
func (l *Loop) Run(ctx context.Context) error {
	if l.Runtime != nil {
		l.Runtime.RegisterQuery(l.ID, "current_state", func() any { return l.Current() })
		defer l.Runtime.UnregisterQueries(l.ID)
	}

	l.reconcile(ctx)

	ticker := time.NewTicker(l.ObservationInterval)
	defer ticker.Stop()

	for {
		l.tick(ctx, time.Now())
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// reconcile adopts the state of the most recently persisted
// assessment, or Happy if none exists. This is deliberately the only
// place boot-time state comes from (§4.2): any disagreement between
// this and the Redis state cache is left for the next evaluation cycle
// to correct, not resolved here.
func (l *Loop) reconcile(ctx context.Context) {
	latest, err := l.Assessments.Latest(ctx)
	if err != nil {
		l.Logger.Warn("reconciliation fetch failed, starting from happy",
			logging.NewFields().Component("observeloop").Operation("reconcile").Error(err).Zap()...)
		l.setState(ctx, signal.Happy, 0)
		return
	}
	if latest == nil {
		l.setState(ctx, signal.Happy, 0)
		return
	}
	l.setState(ctx, latest.State, 0)
}

// tick runs one observation cycle: fetch, persist, evaluate, and
// launch an assessment on state change or on the scheduled cadence.
// A failure at any fetch/persist step is logged and the cycle
// continues with whatever degraded data fetch.FetchSnapshot already
// produced — those clients never return an error themselves.
func (l *Loop) tick(ctx context.Context, now time.Time) {
	snap := fetch.FetchSnapshot(ctx, l.Prometheus, l.Loki, now, l.LogLookback)

	if err := l.Snapshots.Create(ctx, snap); err != nil {
		l.Logger.Warn("snapshot persist failed, continuing",
			logging.NewFields().Component("observeloop").Operation("persist_snapshot").Error(err).Zap()...)
	}
	if err := l.State.AppendSnapshot(ctx, l.ID, snap); err != nil {
		l.Logger.Warn("sliding window append failed, continuing",
			logging.NewFields().Component("observeloop").Operation("append_window").Error(err).Zap()...)
	}
	if n, err := l.State.WindowSize(ctx, l.ID); err == nil {
		l.mu.Lock()
		l.window = n
		l.mu.Unlock()
	}

	current, counter := l.snapshotState()
	newState, newCounter := healthstate.Evaluate(snap.Primary, current, l.Thresholds, counter)

	if newState != current {
		l.Logger.Info("health state transition",
			logging.NewFields().Component("observeloop").Operation("evaluate").
				Resource("cluster", l.ID).Zap()...)
		if err := l.launchAssessment(ctx, now, newState, snap, assessment.TriggerStateChange); err != nil {
			l.Logger.Warn("assessment pipeline failed on state change",
				logging.NewFields().Component("observeloop").Operation("assess").Error(err).Zap()...)
		}
	} else if l.scheduledAssessmentDue(ctx) {
		if err := l.launchAssessment(ctx, now, newState, snap, assessment.TriggerScheduled); err != nil {
			l.Logger.Warn("scheduled assessment failed",
				logging.NewFields().Component("observeloop").Operation("assess").Error(err).Zap()...)
		}
	}

	l.setState(ctx, newState, newCounter)
}

// launchAssessment runs the Assessment Pipeline for this tick. When a
// Runtime is wired, the run is a fixed-id child workflow
// ("<loopID>/assessment:<trigger>:<truncated-to-the-minute>") under
// UseExisting, so a launch whose id matches a run still in flight
// reuses that run instead of starting a second one. tick launches at
// most one assessment per tick (a state change takes precedence over a
// scheduled run). Wait blocks until it completes so tick's own
// error-handling and state bookkeeping stay synchronous either way.
func (l *Loop) launchAssessment(ctx context.Context, now time.Time, state signal.HealthState, snap signal.Snapshot, trigger assessment.Trigger) error {
	if l.Runtime == nil {
		_, err := l.Pipeline.Run(ctx, now, state, snap, trigger)
		return err
	}

	childID := fmt.Sprintf("assessment:%s:%s", trigger, now.Truncate(time.Minute).Format(time.RFC3339))
	handle, err := l.Runtime.StartChild(ctx, l.ID, childID, workflowrt.UseExisting, func(ctx context.Context) error {
		_, err := l.Pipeline.Run(ctx, now, state, snap, trigger)
		return err
	})
	if err != nil {
		return err
	}
	return handle.Wait(ctx)
}

func (l *Loop) scheduledAssessmentDue(ctx context.Context) bool {
	if l.ScheduledInterval <= 0 {
		return false
	}
	due, err := l.State.ShouldScheduleAssessment(ctx, l.ID, l.ScheduledInterval)
	if err != nil {
		l.Logger.Warn("scheduled assessment dedup check failed, skipping this cycle",
			logging.NewFields().Component("observeloop").Operation("schedule_check").Error(err).Zap()...)
		return false
	}
	return due
}

func (l *Loop) snapshotState() (signal.HealthState, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.counter
}

func (l *Loop) setState(ctx context.Context, state signal.HealthState, counter int) {
	l.mu.Lock()
	l.state = state
	l.counter = counter
	l.mu.Unlock()

	if err := l.State.SetCurrentState(ctx, l.ID, redisstate.CurrentState{State: state, Counter: counter}); err != nil {
		l.Logger.Warn("current state cache write failed",
			logging.NewFields().Component("observeloop").Operation("cache_state").Error(err).Zap()...)
	}
}
