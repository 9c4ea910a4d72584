package narrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/narrator/prompt"
	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/signal"
)

// DeepClient performs the thorough, RAG-grounded explanation for the
// needs-deep outcome — the "researcher" role, talked to directly via
// the Anthropic API rather than through the generic langchaingo
// abstraction the cheap triage client uses, since the deep step wants
// Claude's full structured-output behaviour rather than a
// provider-agnostic interface.
type DeepClient struct {
	client anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

// NewDeepClient wraps an already-configured anthropic.Client.
func NewDeepClient(client anthropic.Client, model anthropic.Model, logger *zap.Logger) *DeepClient {
	return &DeepClient{client: client, model: model, logger: logger}
}

// Research runs the deep narrator prompt and decodes its JSON
// response. state/p/a/logs are echoed back into the prompt only —
// the pipeline, not this client, is responsible for overwriting the
// authoritative fields on the returned DeepFindings' caller-side
// Assessment (§4.3 step 3); this client never sees or returns a
// HealthState of its own.
func (c *DeepClient) Research(ctx context.Context, state signal.HealthState, p signal.Primary, a signal.Amplifier, logs []signal.LogPattern, retrieval []string, history []signal.Snapshot, trigger string) (assessment.DeepFindings, error) {
	text := prompt.Deep(state, p, a, logs, retrieval, history, trigger)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return assessment.DeepFindings{}, copilotErrors.FailedToWithDetails("invoke deep narrator", "narrator", "deep", err)
	}

	var raw strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			raw.WriteString(block.Text)
		}
	}

	result, err := decodeDeepFindings(raw.String())
	if err != nil {
		c.logger.Warn("deep narrator returned unparseable JSON, falling back to raw prose",
			logging.NewFields().Component("narrator").Operation("deep").Error(err).Zap()...)
		return assessment.DeepFindings{Summary: raw.String()}, nil
	}
	return result, nil
}

type deepResponseIssue struct {
	Title          string   `json:"title"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description"`
	LikelyCause    string   `json:"likely_cause"`
	RelatedMetrics []string `json:"related_metrics"`
	RelatedLogs    []string `json:"related_logs"`
}

type deepResponseAction struct {
	ActionType    string  `json:"action_type"`
	TargetService string  `json:"target_service"`
	Description   string  `json:"description"`
	Confidence    float64 `json:"confidence"`
	RiskLevel     string  `json:"risk_level"`
}

type deepResponse struct {
	Summary           string               `json:"summary"`
	PrimaryFactor     string               `json:"primary_factor"`
	Issues            []deepResponseIssue  `json:"issues"`
	SuggestedActions  []deepResponseAction `json:"suggested_actions"`
}

// decodeDeepFindings parses the deep narrator's requested JSON shape.
// The model is free to hallucinate issue names and prose — the
// pipeline's overwrite step (§4.3 step 3) is what keeps hallucinated
// *state* from ever surfacing; this function only ever produces
// issues/actions, never a HealthState.
func decodeDeepFindings(text string) (assessment.DeepFindings, error) {
	text = extractJSONObject(text)

	var r deepResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return assessment.DeepFindings{}, copilotErrors.FailedToWithDetails("decode deep narrator response", "narrator", "deep", err)
	}

	issues := make([]assessment.Issue, 0, len(r.Issues))
	for _, i := range r.Issues {
		issues = append(issues, assessment.Issue{
			Severity:       assessment.Severity(i.Severity),
			Title:          i.Title,
			Description:    i.Description,
			LikelyCause:    i.LikelyCause,
			RelatedMetrics: i.RelatedMetrics,
			RelatedLogs:    i.RelatedLogs,
		})
	}

	actions := make([]assessment.SuggestedAction, 0, len(r.SuggestedActions))
	for _, a := range r.SuggestedActions {
		actions = append(actions, assessment.SuggestedAction{
			ActionType:    assessment.ActionType(a.ActionType),
			TargetService: a.TargetService,
			Description:   a.Description,
			Confidence:    a.Confidence,
			RiskLevel:     a.RiskLevel,
		})
	}

	return assessment.DeepFindings{
		Summary:          r.Summary,
		PrimaryFactor:    r.PrimaryFactor,
		Issues:           issues,
		SuggestedActions: actions,
	}, nil
}

// extractJSONObject trims any prose the model wrapped the JSON
// object in, taking the outermost { ... } span.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
