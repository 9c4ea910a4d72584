package narrator

import (
	"context"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/signal"
)

type fakeModel struct {
	response string
	err      error
}

func (f fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.response}}}, nil
}

func (f fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func TestTriageClient_NoExplanationNeeded(t *testing.T) {
	c := NewTriageClient(fakeModel{response: "OUTCOME: no-explanation-needed\n"}, zap.NewNop())
	outcome := c.Triage(context.Background(), signal.Happy, signal.Primary{}, signal.Amplifier{}, "state_change")
	if _, ok := outcome.(assessment.NoExplanationNeeded); !ok {
		t.Fatalf("expected NoExplanationNeeded, got %T", outcome)
	}
}

func TestTriageClient_QuickExplanation(t *testing.T) {
	c := NewTriageClient(fakeModel{response: "OUTCOME: quick-explanation\nSUMMARY: backlog draining\nPRIMARY_FACTOR: history.backlog_age\n"}, zap.NewNop())
	outcome := c.Triage(context.Background(), signal.Stressed, signal.Primary{}, signal.Amplifier{}, "state_change")
	q, ok := outcome.(assessment.QuickExplanation)
	if !ok {
		t.Fatalf("expected QuickExplanation, got %T", outcome)
	}
	if q.Summary != "backlog draining" || q.PrimaryFactor != "history.backlog_age" {
		t.Fatalf("unexpected fields: %+v", q)
	}
}

func TestTriageClient_NeedsDeep_ParsesFactors(t *testing.T) {
	c := NewTriageClient(fakeModel{response: "OUTCOME: needs-deep\nFACTORS: history.backlog_age, persistence.latency_p95\n"}, zap.NewNop())
	outcome := c.Triage(context.Background(), signal.Critical, signal.Primary{}, signal.Amplifier{}, "state_change")
	d, ok := outcome.(assessment.NeedsDeep)
	if !ok {
		t.Fatalf("expected NeedsDeep, got %T", outcome)
	}
	if len(d.ContributingFactors) != 2 {
		t.Fatalf("expected 2 factors, got %v", d.ContributingFactors)
	}
}

func TestTriageClient_ModelErrorDegradesToNeedsDeep(t *testing.T) {
	c := NewTriageClient(fakeModel{err: context.DeadlineExceeded}, zap.NewNop())
	outcome := c.Triage(context.Background(), signal.Critical, signal.Primary{}, signal.Amplifier{}, "state_change")
	if _, ok := outcome.(assessment.NeedsDeep); !ok {
		t.Fatalf("expected a model failure to degrade to NeedsDeep, got %T", outcome)
	}
}

func TestTriageClient_UnparseableResponseDegradesToNeedsDeep(t *testing.T) {
	c := NewTriageClient(fakeModel{response: "not a recognised response at all"}, zap.NewNop())
	outcome := c.Triage(context.Background(), signal.Critical, signal.Primary{}, signal.Amplifier{}, "state_change")
	if _, ok := outcome.(assessment.NeedsDeep); !ok {
		t.Fatalf("expected an unparseable response to degrade to NeedsDeep, got %T", outcome)
	}
}
