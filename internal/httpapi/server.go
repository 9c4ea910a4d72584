// Package httpapi serves the read-only dashboard projections (§6):
// GET /status, /status/services, /status/issues, /status/summary, and
// /status/timeline. The dashboard consumes pre-computed projections
// over the store; this package computes none of the health state
// itself, and overrides a stale stored state to Happy whenever the
// current metric snapshot satisfies the idle detector (Scenario D).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/signal"
)

// AssessmentSource is the read side of the health_assessments table.
// Satisfied by *postgres.AssessmentRepository.
type AssessmentSource interface {
	Latest(ctx context.Context) (*assessment.Assessment, error)
	Recent(ctx context.Context, limit int) ([]*assessment.Assessment, error)
}

// SnapshotSource is the read side of the metrics_snapshots table, used
// only to fetch the single most recent primary-signal snapshot for the
// idle override. Satisfied by *postgres.MetricsSnapshotRepository.
type SnapshotSource interface {
	Recent(ctx context.Context, limit int) ([]signal.Snapshot, error)
}

// Server serves the read API over an AssessmentSource and a
// SnapshotSource. It owns no health-decision logic of its own.
type Server struct {
	Assessments AssessmentSource
	Snapshots   SnapshotSource
	Logger      *zap.Logger

	// TimelineLimit bounds how many assessments /status/timeline
	// returns. Defaults to 20 if unset (see NewRouter).
	TimelineLimit int
}

// NewRouter builds the chi router serving all five read endpoints
// behind CORS and request-logging middleware, matching the teacher's
// go-chi/chi + go-chi/cors stack.
func NewRouter(s *Server) http.Handler {
	if s.TimelineLimit <= 0 {
		s.TimelineLimit = 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/status", func(r chi.Router) {
		r.Get("/", s.handleStatus)
		r.Get("/services", s.handleServices)
		r.Get("/issues", s.handleIssues)
		r.Get("/summary", s.handleSummary)
		r.Get("/timeline", s.handleTimeline)
	})

	return r
}
