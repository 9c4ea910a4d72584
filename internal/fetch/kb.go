package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/observability/logging"
)

// kbRetrievalResponse mirrors the retrieval endpoint's response body:
// `{retrievalResults[].content.text}`.
type kbRetrievalResponse struct {
	RetrievalResults []struct {
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"retrievalResults"`
}

// rawQueryIndicators are substrings that mark a retrieved chunk as a
// leaked raw metric query rather than narrative knowledge-base
// content. Three or more distinct indicators in one chunk is the
// discard heuristic.
var rawQueryIndicators = []string{"sum(rate(", "[1m])", "_bucket{"}

// looksLikeRawQuery reports whether text contains at least three of
// the raw-query indicator substrings.
func looksLikeRawQuery(text string) bool {
	hits := 0
	for _, ind := range rawQueryIndicators {
		if strings.Contains(text, ind) {
			hits++
		}
	}
	return hits >= 3
}

// KBClient retrieves knowledge-base passages keyed by a set of
// contributing-factor terms, discarding chunks that look like leaked
// raw metric queries rather than narrative content.
type KBClient struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewKBClient builds a client against endpoint, with requests bounded
// by timeout and routed through a circuit breaker that opens after
// three consecutive failures.
func NewKBClient(endpoint string, timeout time.Duration, logger *zap.Logger) *KBClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "knowledge_base",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &KBClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		breaker:  breaker,
		logger:   logger,
	}
}

// Retrieve fetches narrative knowledge-base passages relevant to
// factors, filtering out any chunk that looks like a raw metric query.
// A breaker trip or transport error degrades to no passages, never an
// error — retrieval context enriches the deep narrator but must never
// block it.
func (c *KBClient) Retrieve(ctx context.Context, factors []string) []string {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRetrieve(ctx, factors)
	})
	if err != nil {
		c.logger.Warn("knowledge base retrieval degraded to no passages",
			logging.NewFields().Component("fetch").Operation("kb_retrieve").Error(err).Zap()...)
		return nil
	}
	return result.([]string)
}

func (c *KBClient) doRetrieve(ctx context.Context, factors []string) ([]string, error) {
	payload, err := json.Marshal(map[string]any{"query": strings.Join(factors, " ")})
	if err != nil {
		return nil, fmt.Errorf("failed to encode retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach knowledge base: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed kbRetrievalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	passages := make([]string, 0, len(parsed.RetrievalResults))
	for _, r := range parsed.RetrievalResults {
		if looksLikeRawQuery(r.Content.Text) {
			continue
		}
		passages = append(passages, r.Content.Text)
	}
	return passages, nil
}
