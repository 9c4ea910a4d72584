package narrator

import (
	"context"
	"strings"

	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/narrator/prompt"
	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/signal"
)

// TriageClient decides how much explanation a health state needs. It
// is the "cheap narrator" — fast, low-cost, backed by whatever model
// the caller wires in via llms.Model.
type TriageClient struct {
	model  llms.Model
	logger *zap.Logger
}

// NewTriageClient wraps any langchaingo llms.Model as the triage
// backend, so the cheap/expensive split is a deployment choice
// (different model, different provider) rather than a code fork.
func NewTriageClient(model llms.Model, logger *zap.Logger) *TriageClient {
	return &TriageClient{model: model, logger: logger}
}

// Triage runs the dispatcher prompt and parses the tagged outcome.
// Any failure — transport, empty response, unparseable outcome —
// degrades to NeedsDeep rather than propagating an error, so a flaky
// cheap model never silently suppresses an explanation the operator
// needed; the expensive path always remains as a fallback.
func (c *TriageClient) Triage(ctx context.Context, state signal.HealthState, p signal.Primary, a signal.Amplifier, trigger string) assessment.TriageOutcome {
	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt.Triage(state, p, a, trigger),
		llms.WithTemperature(0.0), llms.WithMaxTokens(256))
	if err != nil {
		c.logger.Warn("triage model call failed, deferring to deep narrator",
			logging.NewFields().Component("narrator").Operation("triage").Error(err).Zap()...)
		return assessment.NeedsDeep{}
	}

	outcome, err := parseTriageResponse(text)
	if err != nil {
		c.logger.Warn("triage response unparseable, deferring to deep narrator",
			logging.NewFields().Component("narrator").Operation("triage").Error(err).Zap()...)
		return assessment.NeedsDeep{}
	}
	return outcome
}

func parseTriageResponse(text string) (assessment.TriageOutcome, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	switch fields["OUTCOME"] {
	case "no-explanation-needed":
		return assessment.NoExplanationNeeded{}, nil
	case "quick-explanation":
		return assessment.QuickExplanation{
			Summary:       fields["SUMMARY"],
			PrimaryFactor: fields["PRIMARY_FACTOR"],
		}, nil
	case "needs-deep":
		var factors []string
		for _, f := range strings.Split(fields["FACTORS"], ",") {
			if f := strings.TrimSpace(f); f != "" {
				factors = append(factors, f)
			}
		}
		return assessment.NeedsDeep{ContributingFactors: factors}, nil
	default:
		return nil, fmt.Errorf("unrecognised triage outcome tag %q", fields["OUTCOME"])
	}
}
