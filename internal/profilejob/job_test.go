package profilejob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	"github.com/clusterhealth/copilot/internal/fetch"
	"github.com/clusterhealth/copilot/internal/store/postgres"
)

func rangeValues(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "matrix",
			"result": []map[string]any{
				{
					"metric": map[string]string{},
					"values": [][2]any{
						{1700000000, "10.0"},
						{1700000060, "20.0"},
					},
				},
			},
		},
	})
}

type fakeProfileStore struct {
	created []postgres.ProfileMetadata
}

func (f *fakeProfileStore) Create(ctx context.Context, m postgres.ProfileMetadata) error {
	f.created = append(f.created, m)
	return nil
}

type fakeObjectStore struct {
	puts map[string]behaviourprofile.BehaviourProfile
}

func (f *fakeObjectStore) PutProfile(ctx context.Context, key string, profile behaviourprofile.BehaviourProfile) error {
	if f.puts == nil {
		f.puts = map[string]behaviourprofile.BehaviourProfile{}
	}
	f.puts[key] = profile
	return nil
}

func TestJob_Capture_WritesBodyThenMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(rangeValues))
	defer srv.Close()

	prom := fetch.NewPrometheusClient(srv.URL, time.Second, zap.NewNop())
	profiles := &fakeProfileStore{}
	objects := &fakeObjectStore{}

	job := New("cluster-1", "ns-1", "", prom, profiles, objects, zap.NewNop())
	job.capture(context.Background(), time.Unix(1700000120, 0).UTC())

	if len(profiles.created) != 1 {
		t.Fatalf("created = %d entries, want 1", len(profiles.created))
	}
	meta := profiles.created[0]
	if meta.ClusterID != "cluster-1" || meta.Namespace != "ns-1" {
		t.Errorf("metadata = %+v, want cluster-1/ns-1", meta)
	}

	body, ok := objects.puts[meta.S3Key]
	if !ok {
		t.Fatalf("object store has no body for key %q", meta.S3Key)
	}
	if body.ID != meta.ID {
		t.Errorf("stored body id = %q, want %q", body.ID, meta.ID)
	}
	if body.Telemetry.Throughput.WorkflowsStartedPerSec.Mean == 0 {
		t.Errorf("expected non-zero aggregated telemetry, got zero mean")
	}
}

// A Prometheus outage degrades CollectTelemetry to zero-valued
// aggregates rather than an error (internal/fetch's documented
// failure policy), so a capture still runs and persists a profile —
// one with zeroed telemetry rather than none at all.
func TestJob_Capture_DegradesToZeroedTelemetryOnPrometheusOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	prom := fetch.NewPrometheusClient(srv.URL, time.Second, zap.NewNop())
	profiles := &fakeProfileStore{}
	objects := &fakeObjectStore{}

	job := New("cluster-1", "", "", prom, profiles, objects, zap.NewNop())
	job.capture(context.Background(), time.Now())

	if len(profiles.created) != 1 {
		t.Fatalf("created = %d entries, want 1 (degraded, not skipped)", len(profiles.created))
	}
	body := objects.puts[profiles.created[0].S3Key]
	if body.Telemetry.Throughput.WorkflowsStartedPerSec.Mean != 0 {
		t.Errorf("expected zeroed telemetry on outage, got mean = %v", body.Telemetry.Throughput.WorkflowsStartedPerSec.Mean)
	}
}
