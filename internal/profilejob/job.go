// Package profilejob runs the periodic behaviour-profile capture: on
// a fixed cadence it aggregates the cluster's recent telemetry into a
// BehaviourProfile (§4.4), writes the full body to the object store,
// and records its metadata row so the profile can later be compared,
// set as a baseline, or checked for drift.
package profilejob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/store/objectstore"
	"github.com/clusterhealth/copilot/internal/store/postgres"
)

// ProfileStore persists a captured profile's metadata row. Satisfied
// by *postgres.BehaviourProfileRepository.
type ProfileStore interface {
	Create(ctx context.Context, m postgres.ProfileMetadata) error
}

// ObjectStore writes a captured profile's full JSON body. Satisfied by
// *objectstore.Client.
type ObjectStore interface {
	PutProfile(ctx context.Context, key string, profile behaviourprofile.BehaviourProfile) error
}

// Job captures one cluster's behaviour on a fixed cadence. One Job
// watches one (ClusterID, Namespace, TaskQueue) tuple.
type Job struct {
	ClusterID string
	Namespace string
	TaskQueue string

	Prometheus *fetch.PrometheusClient
	Profiles   ProfileStore
	Objects    ObjectStore
	Logger     *zap.Logger

	// Interval is the capture cadence, default 1h.
	Interval time.Duration
	// Window is how far back each capture's telemetry query looks,
	// default 1h — see behaviourprofile.MaxWindow for the upper bound
	// a captured profile may span.
	Window time.Duration
	// Step is the Prometheus range-query step, default 1m.
	Step time.Duration
}

// New builds a Job with the reference cadence (1h capture interval,
// 1h capture window, 1m step).
func New(clusterID, namespace, taskQueue string, prom *fetch.PrometheusClient, profiles ProfileStore, objects ObjectStore, logger *zap.Logger) *Job {
	return &Job{
		ClusterID:  clusterID,
		Namespace:  namespace,
		TaskQueue:  taskQueue,
		Prometheus: prom,
		Profiles:   profiles,
		Objects:    objects,
		Logger:     logger,
		Interval:   time.Hour,
		Window:     time.Hour,
		Step:       time.Minute,
	}
}

// Run captures one profile immediately and then on every Interval
// until ctx is cancelled. A capture failure is logged and the job
// continues at the next tick, matching the Observation Loop's
// failure policy (§4.2): nothing short of context cancellation stops
// it.
func (j *Job) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		j.capture(ctx, time.Now())
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (j *Job) capture(ctx context.Context, now time.Time) {
	start := now.Add(-j.Window)

	telemetry, err := fetch.CollectTelemetry(ctx, j.Prometheus, start, now, j.Step)
	if err != nil {
		j.Logger.Warn("behaviour profile capture failed, continuing",
			logging.NewFields().Component("profilejob").Operation("collect_telemetry").Error(err).Zap()...)
		return
	}

	profile := behaviourprofile.BehaviourProfile{
		ID:              uuid.New().String(),
		Name:            fmt.Sprintf("%s-%s", j.ClusterID, now.UTC().Format("20060102T150405Z")),
		ClusterID:       j.ClusterID,
		Namespace:       j.Namespace,
		TaskQueue:       j.TaskQueue,
		TimeWindowStart: start,
		TimeWindowEnd:   now,
		Telemetry:       telemetry,
		CreatedAt:       now,
	}

	key := objectstore.Key(profile.ID)
	if err := j.Objects.PutProfile(ctx, key, profile); err != nil {
		j.Logger.Warn("behaviour profile body write failed, continuing",
			logging.NewFields().Component("profilejob").Operation("put_profile").Error(err).Zap()...)
		return
	}

	if err := j.Profiles.Create(ctx, postgres.MetadataFromProfile(profile, key)); err != nil {
		j.Logger.Warn("behaviour profile metadata write failed, continuing",
			logging.NewFields().Component("profilejob").Operation("create_metadata").Error(err).Zap()...)
		return
	}

	j.Logger.Info("behaviour profile captured",
		logging.NewFields().Component("profilejob").Operation("capture").
			Custom("profile_id", profile.ID).Custom("cluster_id", j.ClusterID).Zap()...)
}
