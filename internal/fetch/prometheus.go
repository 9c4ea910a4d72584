// Package fetch adapts the external metric, log, and knowledge-base
// collaborators the Observation Loop and Assessment Pipeline consume.
// Every call is wrapped in a circuit breaker: a flapping upstream
// degrades to zero-valued samples rather than getting hammered, per
// the transient-upstream error policy — these adapters never surface
// a fetch failure to their caller, they log and return zeros.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/observability/logging"
)

// Sample is one (timestamp, value) pair from a Prometheus range query,
// with NaN samples already filtered out.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Series is one labelled time series returned by a range query.
type Series struct {
	Labels map[string]string
	Values []Sample
}

// prometheusQueryResponse mirrors the `/api/v1/query` response body.
type prometheusQueryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  [2]interface{}    `json:"value"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// prometheusRangeResponse mirrors the `/api/v1/query_range` response
// body: `{status, data.result[].metric, data.result[].values[][ts,val]}`.
type prometheusRangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][2]interface{}  `json:"values"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// PrometheusClient queries a Prometheus-compatible `/api/v1/query` and
// `/api/v1/query_range` endpoint, with every call running through a
// circuit breaker so a flapping endpoint degrades to zero samples
// instead of being hammered.
type PrometheusClient struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewPrometheusClient builds a client against endpoint (trailing slash
// trimmed), with requests bounded by timeout and routed through a
// circuit breaker that opens after three consecutive failures.
func NewPrometheusClient(endpoint string, timeout time.Duration, logger *zap.Logger) *PrometheusClient {
	for len(endpoint) > 0 && endpoint[len(endpoint)-1] == '/' {
		endpoint = endpoint[:len(endpoint)-1]
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prometheus",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &PrometheusClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		breaker:  breaker,
		logger:   logger,
	}
}

// InstantValue runs an instant `/api/v1/query` and returns the scalar
// value of the first result series. A breaker trip, a transport error,
// a decode error, or an empty result set all degrade to 0 rather than
// propagating — per the transient-upstream error policy, this adapter
// never returns an error to the Observation Loop.
func (c *PrometheusClient) InstantValue(ctx context.Context, query string) float64 {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doInstantQuery(ctx, query)
	})
	if err != nil {
		c.logger.Warn("prometheus instant query degraded to zero",
			logging.NewFields().Component("fetch").Operation("instant_query").Resource("promql", query).Error(err).Zap()...)
		return 0
	}
	return result.(float64)
}

func (c *PrometheusClient) doInstantQuery(ctx context.Context, query string) (float64, error) {
	values := url.Values{}
	values.Set("query", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/query?"+values.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach prometheus: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed prometheusQueryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Status != "success" {
		return 0, fmt.Errorf("prometheus query failed: %s", parsed.Error)
	}
	if len(parsed.Data.Result) == 0 {
		return 0, nil
	}

	raw, ok := parsed.Data.Result[0].Value[1].(string)
	if !ok {
		return 0, fmt.Errorf("unexpected value shape in prometheus response")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sample value %q: %w", raw, err)
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}

// QueryRange runs `/api/v1/query_range` over [start, end] at the given
// step and returns every series, with NaN samples filtered. A series
// that comes back empty yields zero samples, never an error — callers
// that need "no data" to be visible must check len(series) themselves.
func (c *PrometheusClient) QueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]Series, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doQueryRange(ctx, query, start, end, step)
	})
	if err != nil {
		c.logger.Warn("prometheus range query degraded to empty series",
			logging.NewFields().Component("fetch").Operation("query_range").Resource("promql", query).Error(err).Zap()...)
		return nil, nil
	}
	return result.([]Series), nil
}

func (c *PrometheusClient) doQueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]Series, error) {
	values := url.Values{}
	values.Set("query", query)
	values.Set("start", strconv.FormatInt(start.Unix(), 10))
	values.Set("end", strconv.FormatInt(end.Unix(), 10))
	values.Set("step", strconv.FormatFloat(step.Seconds(), 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/query_range?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach prometheus: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed prometheusRangeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("prometheus range query failed: %s", parsed.Error)
	}

	series := make([]Series, 0, len(parsed.Data.Result))
	for _, r := range parsed.Data.Result {
		s := Series{Labels: r.Metric}
		for _, pair := range r.Values {
			ts, ok := pair[0].(float64)
			if !ok {
				continue
			}
			raw, ok := pair[1].(string)
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) {
				continue
			}
			s.Values = append(s.Values, Sample{Timestamp: time.Unix(int64(ts), 0).UTC(), Value: v})
		}
		series = append(series, s)
	}
	return series, nil
}

// HealthCheck probes Prometheus's own `/-/healthy` endpoint.
func (c *PrometheusClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/-/healthy", nil)
	if err != nil {
		return fmt.Errorf("failed to build health check request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach prometheus: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}
