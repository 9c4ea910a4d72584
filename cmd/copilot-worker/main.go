// Command copilot-worker is the long-running process: it starts the
// Observation Loop under a fixed workflow id (idempotent across
// restarts), serves the read API, and exposes this copilot's own
// self-metrics. Configuration comes from a YAML file named by -config,
// overlaid with environment secrets (internal/config).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/config"
	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/httpapi"
	"github.com/clusterhealth/copilot/internal/narrator"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/observability/metrics"
	"github.com/clusterhealth/copilot/internal/observeloop"
	"github.com/clusterhealth/copilot/internal/profilejob"
	"github.com/clusterhealth/copilot/internal/store/objectstore"
	"github.com/clusterhealth/copilot/internal/store/postgres"
	"github.com/clusterhealth/copilot/internal/store/redisstate"
	"github.com/clusterhealth/copilot/internal/workflowrt"
)

func main() {
	configPath := flag.String("config", "/etc/copilot/config.yaml", "path to the process config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "copilot-worker: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "copilot-worker: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("copilot-worker exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := postgres.Migrate(cfg.Store.PostgresDSN); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	db, err := postgres.Open(cfg.Store.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	assessments := postgres.NewAssessmentRepository(db)
	snapshots := postgres.NewMetricsSnapshotRepository(db)
	profiles := postgres.NewBehaviourProfileRepository(db)
	state := redisstate.New(cfg.Store.RedisAddr)

	prom := fetch.NewPrometheusClient(cfg.Sources.PrometheusEndpoint, cfg.Sources.FetchTimeout, logger)
	loki := fetch.NewLokiClient(cfg.Sources.LokiEndpoint, cfg.Sources.FetchTimeout, logger)
	kb := fetch.NewKBClient(cfg.Sources.KBEndpoint, cfg.Sources.FetchTimeout, logger)

	triageModel, err := ollama.New(
		ollama.WithServerURL(cfg.Narrator.TriageEndpoint),
		ollama.WithModel(cfg.Narrator.TriageModel),
	)
	if err != nil {
		return fmt.Errorf("build triage model client: %w", err)
	}
	triage := narrator.NewTriageClient(triageModel, logger)

	anthropicClient := anthropic.NewClient(option.WithAPIKey(cfg.Narrator.AnthropicAPIKey))
	deep := narrator.NewDeepClient(anthropicClient, anthropic.Model(cfg.Narrator.DeepModel), logger)

	pipeline := assessment.NewPipeline(triage, deep, kb, loki, snapshots, assessments, logger)

	runtime := workflowrt.New()

	loop := observeloop.New(cfg.Loop.ClusterID, prom, loki, snapshots, assessments, state, pipeline, logger)
	loop.Runtime = runtime
	loop.ObservationInterval = cfg.Loop.PollInterval
	loop.ScheduledInterval = cfg.Loop.ScheduledAssessmentEvery

	objects, err := objectstore.New(ctx, cfg.Store.ObjectBucket)
	if err != nil {
		return fmt.Errorf("build object store client: %w", err)
	}
	profileJob := profilejob.New(cfg.Loop.ClusterID, cfg.Loop.Namespace, cfg.Loop.TaskQueue, prom, profiles, objects, logger)
	profileJob.Interval = cfg.Loop.ProfileCaptureEvery

	selfMetrics := metrics.New()

	apiServer := &httpapi.Server{
		Assessments:   assessments,
		Snapshots:     snapshots,
		Logger:        logger,
		TimelineLimit: cfg.Server.TimelineLimit,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Start is idempotent under the cluster's fixed id: a restart
		// that races a still-running previous instance's registration
		// joins it under UseExisting rather than erroring.
		handle, err := runtime.Start(gctx, cfg.Loop.ClusterID, workflowrt.UseExisting, loop.Run)
		if err != nil {
			return fmt.Errorf("start observation loop: %w", err)
		}
		return handle.Wait(gctx)
	})

	g.Go(func() error {
		handle, err := runtime.Start(gctx, cfg.Loop.ClusterID+"-profile-job", workflowrt.UseExisting, profileJob.Run)
		if err != nil {
			return fmt.Errorf("start behaviour profile job: %w", err)
		}
		return handle.Wait(gctx)
	})

	statusSrv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: httpapi.NewRouter(apiServer)}
	g.Go(func() error { return serveUntilDone(gctx, statusSrv) })

	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: selfMetrics.Handler()}
	g.Go(func() error { return serveUntilDone(gctx, metricsSrv) })

	logger.Info("copilot-worker started",
		logging.NewFields().Component("main").
			Custom("cluster_id", cfg.Loop.ClusterID).
			Custom("listen_addr", cfg.Server.ListenAddr).
			Custom("metrics_addr", cfg.Server.MetricsAddr).Zap()...)

	return g.Wait()
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down
// gracefully within a bounded window.
func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
