package healthstate

import "github.com/clusterhealth/copilot/internal/signal"

// Bottleneck is the deterministic label produced by classifying
// worker vs server pressure. It never influences health state — it
// decorates remediation advice after the state is already decided.
type Bottleneck string

const (
	BottleneckServerLimited Bottleneck = "server_limited"
	BottleneckWorkerLimited Bottleneck = "worker_limited"
	BottleneckMixed         Bottleneck = "mixed"
	BottleneckHealthy       Bottleneck = "healthy"
)

// BottleneckThresholds bounds the classifier's gates.
type BottleneckThresholds struct {
	WorkerScheduleToStartP95MaxMs float64
	ServerBacklogMaxSec           float64
	ServerPersistenceLatencyP95MaxMs float64
}

// DefaultBottleneckThresholds returns the reference defaults.
func DefaultBottleneckThresholds() BottleneckThresholds {
	return BottleneckThresholds{
		WorkerScheduleToStartP95MaxMs:    50.0,
		ServerBacklogMaxSec:              30.0,
		ServerPersistenceLatencyP95MaxMs: 100.0,
	}
}

// ClassifyBottleneck labels whether server, workers, both, or neither
// is the constraint, from primary and worker signals. It is a pure
// function decoupled from the state machine's decision.
func ClassifyBottleneck(p signal.Primary, w signal.WorkerSignal, t BottleneckThresholds) Bottleneck {
	workerLimited := w.SlotsExhausted() || w.ScheduleToStartP95Ms > t.WorkerScheduleToStartP95MaxMs
	serverLimited := p.History.BacklogAgeSec > t.ServerBacklogMaxSec ||
		p.Persistence.LatencyP95Ms > t.ServerPersistenceLatencyP95MaxMs

	switch {
	case workerLimited && serverLimited:
		return BottleneckMixed
	case workerLimited:
		return BottleneckWorkerLimited
	case serverLimited:
		return BottleneckServerLimited
	default:
		return BottleneckHealthy
	}
}
