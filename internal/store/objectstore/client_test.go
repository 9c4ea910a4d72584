package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
)

// fakeS3 is a minimal in-memory object store that speaks just enough
// of the S3 HTTP surface (PUT/GET on a bucket/key path) for PutObject
// and GetObject round-trips.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3Server(t *testing.T) (*httptest.Server, *s3.Client) {
	t.Helper()
	store := &fakeS3{objects: make(map[string][]byte)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store.mu.Lock()
		defer store.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			store.objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := store.objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
	})
	return server, client
}

func TestClient_PutAndGetProfile_RoundTrips(t *testing.T) {
	_, s3Client := newFakeS3Server(t)
	client := NewWithClient(s3Client, "copilot-profiles")

	profile := behaviourprofile.BehaviourProfile{
		ID:              "profile-1",
		Name:            "nightly baseline",
		ClusterID:       "cluster-a",
		TimeWindowStart: time.Unix(1000, 0).UTC(),
		TimeWindowEnd:   time.Unix(2000, 0).UTC(),
		IsBaseline:      true,
	}

	key := Key(profile.ID)
	if err := client.PutProfile(context.Background(), key, profile); err != nil {
		t.Fatalf("unexpected error on put: %v", err)
	}

	got, err := client.GetProfile(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error on get: %v", err)
	}
	if got.ID != profile.ID || got.ClusterID != profile.ClusterID {
		t.Fatalf("expected profile to round-trip, got %+v", got)
	}
	if !got.IsBaseline {
		t.Fatal("expected is_baseline to round-trip")
	}
}

func TestClient_GetProfile_MissingKeyReturnsError(t *testing.T) {
	_, s3Client := newFakeS3Server(t)
	client := NewWithClient(s3Client, "copilot-profiles")

	_, err := client.GetProfile(context.Background(), Key("does-not-exist"))
	if err == nil {
		t.Fatal("expected an error for a missing object")
	}
}

func TestKey_IsStableAndNamespaced(t *testing.T) {
	if Key("abc") != "behaviour-profiles/abc.json" {
		t.Fatalf("unexpected key shape: %s", Key("abc"))
	}
}
