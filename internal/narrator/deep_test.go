package narrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/signal"
)

func newTestDeepClient(t *testing.T, responseText string) (*DeepClient, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]string{
				{"type": "text", "text": responseText},
			},
			"model":       "test-model",
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 1, "output_tokens": 1},
		})
	}))

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
	)
	return NewDeepClient(client, anthropic.Model("test-model"), zap.NewNop()), server.Close
}

func TestDeepClient_Research_DecodesWellFormedJSON(t *testing.T) {
	payload := `{
		"summary": "backlog is draining because persistence latency spiked",
		"primary_factor": "persistence.latency_p95",
		"issues": [
			{"title": "persistence latency spike", "severity": "critical", "description": "p95 write latency exceeded threshold", "likely_cause": "DSQL region failover", "related_metrics": ["persistence.latency_p95"], "related_logs": []}
		],
		"suggested_actions": [
			{"action_type": "scale", "target_service": "matching", "description": "scale matching pool", "confidence": 0.7, "risk_level": "low"}
		]
	}`
	client, closeFn := newTestDeepClient(t, payload)
	defer closeFn()

	result, err := client.Research(context.Background(), signal.Critical, signal.Primary{}, signal.Amplifier{}, nil, nil, nil, "state_change")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PrimaryFactor != "persistence.latency_p95" {
		t.Fatalf("unexpected primary factor: %q", result.PrimaryFactor)
	}
	if len(result.Issues) != 1 || result.Issues[0].Title != "persistence latency spike" {
		t.Fatalf("unexpected issues: %+v", result.Issues)
	}
	if len(result.SuggestedActions) != 1 || result.SuggestedActions[0].TargetService != "matching" {
		t.Fatalf("unexpected actions: %+v", result.SuggestedActions)
	}
}

func TestDeepClient_Research_FallsBackToRawProseOnUnparseableResponse(t *testing.T) {
	client, closeFn := newTestDeepClient(t, "the cluster looks fine to me, no JSON here")
	defer closeFn()

	result, err := client.Research(context.Background(), signal.Happy, signal.Primary{}, signal.Amplifier{}, nil, nil, nil, "state_change")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "the cluster looks fine to me, no JSON here" {
		t.Fatalf("expected the raw prose to surface as the summary, got %q", result.Summary)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("expected no issues when the response could not be parsed")
	}
}

func TestDeepClient_Research_ToleratesJSONWrappedInProse(t *testing.T) {
	payload := `Here is my assessment:
	{"summary": "all quiet", "primary_factor": "", "issues": [], "suggested_actions": []}
	Let me know if you need more detail.`
	client, closeFn := newTestDeepClient(t, payload)
	defer closeFn()

	result, err := client.Research(context.Background(), signal.Happy, signal.Primary{}, signal.Amplifier{}, nil, nil, nil, "state_change")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "all quiet" {
		t.Fatalf("expected the JSON object to be extracted from surrounding prose, got %q", result.Summary)
	}
}
