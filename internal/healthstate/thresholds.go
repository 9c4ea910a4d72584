package healthstate

// CriticalThresholds gate the Critical state. Defaults match the
// reference implementation's tuning for a 30s observation cadence.
type CriticalThresholds struct {
	StateTransitionsMinPerSec   float64
	CompletionRateMin           float64
	DemandFloorPerSec           float64
	HistoryBacklogAgeMaxSec     float64
	HistoryProcessingRateMinPerSec float64
	PersistenceErrorRateMaxPerSec  float64
}

// DefaultCriticalThresholds returns the reference defaults.
func DefaultCriticalThresholds() CriticalThresholds {
	return CriticalThresholds{
		StateTransitionsMinPerSec:      10.0,
		CompletionRateMin:              0.5,
		DemandFloorPerSec:              5.0,
		HistoryBacklogAgeMaxSec:        120.0,
		HistoryProcessingRateMinPerSec: 10.0,
		PersistenceErrorRateMaxPerSec:  10.0,
	}
}

// StressedThresholds gate the Stressed state.
type StressedThresholds struct {
	StateTransitionLatencyP99MaxMs float64
	HistoryBacklogAgeStressSec    float64
	FrontendLatencyP99MaxMs       float64
	PersistenceLatencyP99MaxMs    float64
	ShardChurnRateMaxPerSec       float64
	PollerTimeoutRateMax          float64
}

// DefaultStressedThresholds returns the reference defaults.
func DefaultStressedThresholds() StressedThresholds {
	return StressedThresholds{
		StateTransitionLatencyP99MaxMs: 500.0,
		HistoryBacklogAgeStressSec:     30.0,
		FrontendLatencyP99MaxMs:        1000.0,
		PersistenceLatencyP99MaxMs:     100.0,
		ShardChurnRateMaxPerSec:        5.0,
		PollerTimeoutRateMax:           0.1,
	}
}

// HealthyThresholds gate the Happy state (all must pass).
type HealthyThresholds struct {
	StateTransitionsHealthyPerSec float64
	HistoryBacklogAgeHealthySec   float64
	CompletionRateHealthy         float64
}

// DefaultHealthyThresholds returns the reference defaults.
func DefaultHealthyThresholds() HealthyThresholds {
	return HealthyThresholds{
		StateTransitionsHealthyPerSec: 50.0,
		HistoryBacklogAgeHealthySec:   10.0,
		CompletionRateHealthy:         0.95,
	}
}

// Thresholds bundles the three threshold sets the state machine needs.
type Thresholds struct {
	Critical CriticalThresholds
	Stressed StressedThresholds
	Healthy  HealthyThresholds
}

// DefaultThresholds returns the reference default threshold bundle.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: DefaultCriticalThresholds(),
		Stressed: DefaultStressedThresholds(),
		Healthy:  DefaultHealthyThresholds(),
	}
}

// ValidateOrdering enforces the threshold ordering invariant (§4.1):
//
//	healthy.backlog_ceiling <= stressed.backlog_stress < critical.backlog_max
//	critical.throughput_min <= healthy.throughput_floor
//	critical.completion_min < healthy.completion_floor
//
// Implementations must call this once at startup (a self-test) and
// treat a violation as fatal: a mistuned threshold set can make the
// state machine's anti-flap guarantees silently false.
func (t Thresholds) ValidateOrdering() error {
	if !(t.Healthy.HistoryBacklogAgeHealthySec <= t.Stressed.HistoryBacklogAgeStressSec &&
		t.Stressed.HistoryBacklogAgeStressSec < t.Critical.HistoryBacklogAgeMaxSec) {
		return errOrdering("backlog", "healthy.ceiling <= stressed.stress < critical.max")
	}
	if !(t.Critical.StateTransitionsMinPerSec <= t.Healthy.StateTransitionsHealthyPerSec) {
		return errOrdering("throughput", "critical.min <= healthy.floor")
	}
	if !(t.Critical.CompletionRateMin < t.Healthy.CompletionRateHealthy) {
		return errOrdering("completion", "critical.min < healthy.floor")
	}
	return nil
}

type orderingError struct {
	signal string
	rule   string
}

func (e *orderingError) Error() string {
	return "healthstate: threshold ordering invariant violated for " + e.signal + ": expected " + e.rule
}

func errOrdering(signal, rule string) error {
	return &orderingError{signal: signal, rule: rule}
}
