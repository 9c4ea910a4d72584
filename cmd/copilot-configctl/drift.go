package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	"github.com/clusterhealth/copilot/internal/compiler"
	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/store/objectstore"
	"github.com/clusterhealth/copilot/internal/store/postgres"
)

// driftStores bundles the persistence clients the drift-engine
// subcommands share: a Postgres connection for behaviour_profiles
// metadata and an object store for the profile bodies it references.
type driftStores struct {
	db      *postgres.BehaviourProfileRepository
	objects *objectstore.Client
	prom    *fetch.PrometheusClient
	logger  *zap.Logger
}

func buildDriftStores(ctx context.Context, postgresDSN, objectBucket, prometheusEndpoint string) (*driftStores, func(), error) {
	logger := zap.NewNop()

	db, err := postgres.Open(postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	closeFn := func() { db.Close() }

	objects, err := objectstore.New(ctx, objectBucket)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("build object store client: %w", err)
	}

	var prom *fetch.PrometheusClient
	if prometheusEndpoint != "" {
		prom = fetch.NewPrometheusClient(prometheusEndpoint, 10*time.Second, logger)
	}

	return &driftStores{
		db:      postgres.NewBehaviourProfileRepository(db),
		objects: objects,
		prom:    prom,
		logger:  logger,
	}, closeFn, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadProfile(ctx context.Context, stores *driftStores, meta postgres.ProfileMetadata) (behaviourprofile.BehaviourProfile, error) {
	return stores.objects.GetProfile(ctx, meta.S3Key)
}

// runDrift compares a cluster's current telemetry against its
// designated baseline profile (§4.4: DetectDrift, CorrelateDrift, and
// — when -preset is given — CheckConformance against that preset's
// expected bounds).
func runDrift(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("drift", flag.ExitOnError)
	cluster := fs.String("cluster", "", "cluster id (required)")
	namespace := fs.String("namespace", "", "namespace (omit for cluster-wide baseline)")
	postgresDSN := fs.String("postgres-dsn", envOrDefault("COPILOT_POSTGRES_DSN", ""), "Postgres connection string")
	objectBucket := fs.String("object-bucket", envOrDefault("COPILOT_OBJECT_BUCKET", ""), "object store bucket")
	prometheusEndpoint := fs.String("prometheus-endpoint", "", "Prometheus endpoint to capture current telemetry from")
	window := fs.Duration("window", time.Hour, "capture window for current telemetry")
	step := fs.Duration("step", time.Minute, "Prometheus range-query step")
	preset := fs.String("preset", "", "scale preset to also check current telemetry's conformance against")
	format := fs.String("format", "text", "output format: text or json")
	fs.Parse(args)

	if *cluster == "" {
		fail("drift requires -cluster")
	}
	if *postgresDSN == "" || *objectBucket == "" {
		fail("drift requires -postgres-dsn and -object-bucket (or COPILOT_POSTGRES_DSN / COPILOT_OBJECT_BUCKET)")
	}

	stores, closeFn, err := buildDriftStores(ctx, *postgresDSN, *objectBucket, *prometheusEndpoint)
	if err != nil {
		fail("%v", err)
	}
	defer closeFn()

	baselineMeta, err := stores.db.Baseline(ctx, *cluster, *namespace)
	if err != nil {
		fail("fetch baseline metadata: %v", err)
	}
	if baselineMeta == nil {
		fail("no baseline profile set for cluster %q namespace %q; run set-baseline first", *cluster, *namespace)
	}
	baseline, err := loadProfile(ctx, stores, *baselineMeta)
	if err != nil {
		fail("fetch baseline body: %v", err)
	}

	if stores.prom == nil {
		fail("drift requires -prometheus-endpoint to capture current telemetry")
	}
	now := time.Now()
	telemetry, err := fetch.CollectTelemetry(ctx, stores.prom, now.Add(-*window), now, *step)
	if err != nil {
		fail("collect current telemetry: %v", err)
	}
	current := behaviourprofile.BehaviourProfile{
		ID:              "current",
		ClusterID:       *cluster,
		Namespace:       *namespace,
		TimeWindowStart: now.Add(-*window),
		TimeWindowEnd:   now,
		Telemetry:       telemetry,
	}

	comparison := behaviourprofile.Compare(baseline, current)
	report := behaviourprofile.DetectDrift(baseline, current)
	correlated := behaviourprofile.CorrelateDrift(comparison, behaviourprofile.DefaultCorrelationTable())

	var conformance *behaviourprofile.ConformanceReport
	if *preset != "" {
		p, ok := compiler.GetPreset(*preset)
		if !ok {
			fail("unknown preset %q", *preset)
		}
		c := behaviourprofile.CheckConformance(current, p)
		conformance = &c
	}

	if *format == "json" {
		printJSON(struct {
			Drift       behaviourprofile.DriftReport       `json:"drift"`
			Correlated  []behaviourprofile.CorrelatedDrift  `json:"correlated"`
			Conformance *behaviourprofile.ConformanceReport `json:"conformance,omitempty"`
		}{report, correlated, conformance})
		return
	}
	printDriftReport(report, correlated, conformance)
}

func printDriftReport(report behaviourprofile.DriftReport, correlated []behaviourprofile.CorrelatedDrift, conformance *behaviourprofile.ConformanceReport) {
	status := "not drifted"
	if report.IsDrifted {
		status = "DRIFTED"
	}
	fmt.Printf("Baseline: %s\nStatus: %s\n\n", report.BaselineID, status)

	if len(report.TelemetryDiffs) > 0 {
		fmt.Println("Telemetry changes:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  METRIC\tDIRECTION\tSEVERITY\tCHANGE %")
		for _, d := range report.TelemetryDiffs {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%.2f\n", d.Metric, d.Direction, d.Severity, d.ChangePct)
		}
		w.Flush()
		fmt.Println()
	}

	if len(report.ConfigDiffs) > 0 {
		fmt.Println("Configuration changes:")
		for _, c := range report.ConfigDiffs {
			fmt.Printf("  %s: %v -> %v\n", c.Key, c.OldValue, c.NewValue)
		}
		fmt.Println()
	}

	if len(correlated) > 0 {
		fmt.Println("Correlated drift:")
		for _, c := range correlated {
			fmt.Printf("  %s (%v -> %v) likely caused %s to regress %.2f%%\n",
				c.ConfigKey, c.OldValue, c.NewValue, c.CorrelatedMetric, c.TelemetryDiff.ChangePct)
		}
		fmt.Println()
	}

	if conformance != nil {
		fmt.Printf("Conformance against preset %q: %s\n", conformance.PresetName, conformance.Label)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  METRIC\tBOUNDS\tOBSERVED\tPASS")
		for _, b := range conformance.Bounds {
			fmt.Fprintf(w, "  %s\t[%.2f, %.2f]\t%.2f\t%v\n", b.Metric, b.Lower, b.Upper, b.ObservedMean, b.Pass)
		}
		w.Flush()
	}
}

// runSetBaseline designates an already-captured profile as the
// baseline for a (cluster, namespace) pair.
func runSetBaseline(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("set-baseline", flag.ExitOnError)
	cluster := fs.String("cluster", "", "cluster id (required)")
	namespace := fs.String("namespace", "", "namespace (omit for cluster-wide baseline)")
	postgresDSN := fs.String("postgres-dsn", envOrDefault("COPILOT_POSTGRES_DSN", ""), "Postgres connection string")
	fs.Parse(args)

	if *cluster == "" || fs.NArg() < 1 {
		fail("set-baseline requires -cluster and a profile id argument")
	}
	if *postgresDSN == "" {
		fail("set-baseline requires -postgres-dsn (or COPILOT_POSTGRES_DSN)")
	}
	profileID := fs.Arg(0)

	db, err := postgres.Open(*postgresDSN)
	if err != nil {
		fail("open postgres: %v", err)
	}
	defer db.Close()
	repo := postgres.NewBehaviourProfileRepository(db)

	if err := repo.SetBaseline(ctx, *cluster, *namespace, profileID); err != nil {
		fail("set baseline: %v", err)
	}
	fmt.Printf("%s is now the baseline for cluster %q namespace %q\n", profileID, *cluster, *namespace)
}

// runListProfiles lists every stored profile for a cluster, newest
// first, flagging the current baseline.
func runListProfiles(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list-profiles", flag.ExitOnError)
	cluster := fs.String("cluster", "", "cluster id (required)")
	postgresDSN := fs.String("postgres-dsn", envOrDefault("COPILOT_POSTGRES_DSN", ""), "Postgres connection string")
	fs.Parse(args)

	if *cluster == "" {
		fail("list-profiles requires -cluster")
	}
	if *postgresDSN == "" {
		fail("list-profiles requires -postgres-dsn (or COPILOT_POSTGRES_DSN)")
	}

	db, err := postgres.Open(*postgresDSN)
	if err != nil {
		fail("open postgres: %v", err)
	}
	defer db.Close()
	repo := postgres.NewBehaviourProfileRepository(db)

	profiles, err := repo.List(ctx, *cluster)
	if err != nil {
		fail("list profiles: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNAMESPACE\tWINDOW START\tBASELINE")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", p.ID, p.Name, p.Namespace, p.TimeWindowStart.Format(time.RFC3339), p.IsBaseline)
	}
	w.Flush()
}
