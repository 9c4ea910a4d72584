package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/observability/logging"
	"github.com/clusterhealth/copilot/internal/signal"
)

// lokiRangeResponse mirrors `/loki/api/v1/query_range`'s response
// body: `{data.result[].stream, values[][ts, message]}`.
type lokiRangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// LogMatcher is one substring pattern to scan for within a named
// service's log lines, matched case-insensitively.
type LogMatcher struct {
	Service string
	Pattern string
}

// LokiClient queries a Loki-compatible `/loki/api/v1/query_range`
// endpoint and scans returned log lines against a fixed catalogue of
// substring patterns.
type LokiClient struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewLokiClient builds a client against endpoint, with requests
// bounded by timeout and routed through a circuit breaker that opens
// after three consecutive failures.
func NewLokiClient(endpoint string, timeout time.Duration, logger *zap.Logger) *LokiClient {
	for len(endpoint) > 0 && endpoint[len(endpoint)-1] == '/' {
		endpoint = endpoint[:len(endpoint)-1]
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "loki",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &LokiClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		breaker:  breaker,
		logger:   logger,
	}
}

// MatchPatterns queries logql over [start, end] for every matcher's
// service and counts lines containing its pattern, returning one
// signal.LogPattern per matcher that had at least one hit. A breaker
// trip or transport error degrades to no patterns found, never an
// error — log enrichment is narrative-only and must never block the
// pipeline that invokes it.
func (c *LokiClient) MatchPatterns(ctx context.Context, matchers []LogMatcher, start, end time.Time) []signal.LogPattern {
	var out []signal.LogPattern
	for _, m := range matchers {
		lines, err := c.queryService(ctx, m.Service, start, end)
		if err != nil {
			c.logger.Warn("loki query degraded to no log lines",
				logging.NewFields().Component("fetch").Operation("match_patterns").Resource("service", m.Service).Error(err).Zap()...)
			continue
		}
		count := 0
		var sample string
		lowerPattern := strings.ToLower(m.Pattern)
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), lowerPattern) {
				count++
				if sample == "" {
					sample = line
				}
			}
		}
		if count > 0 {
			out = append(out, signal.LogPattern{
				Service: m.Service,
				Pattern: m.Pattern,
				Count:   count,
				Sample:  sample,
			})
		}
	}
	return out
}

func (c *LokiClient) queryService(ctx context.Context, service string, start, end time.Time) ([]string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doQueryRange(ctx, service, start, end)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *LokiClient) doQueryRange(ctx context.Context, service string, start, end time.Time) ([]string, error) {
	query := fmt.Sprintf(`{service="%s"}`, service)
	values := url.Values{}
	values.Set("query", query)
	values.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	values.Set("end", strconv.FormatInt(end.UnixNano(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/loki/api/v1/query_range?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach loki: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed lokiRangeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("loki query failed: %s", parsed.Error)
	}

	var lines []string
	for _, r := range parsed.Data.Result {
		for _, v := range r.Values {
			lines = append(lines, v[1])
		}
	}
	return lines, nil
}
