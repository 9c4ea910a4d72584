// Package guardrail evaluates a resolved configuration profile against
// the deployment-safety rules that must hold before a compiled profile
// is allowed to reach an adopter: connection-pool symmetry, cluster
// connection budget, thundering-herd jitter, and the handful of other
// constraints that catch a misconfigured Temporal-on-DSQL deployment
// before it ships. The rules are expressed as a Rego policy and
// evaluated with OPA so an operator can audit — or eventually
// override — the rule set without a Go recompile.
package guardrail

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/clusterhealth/copilot/internal/observability/errors"
)

//go:embed policy.rego
var defaultPolicy string

// Severity distinguishes a hard failure from an advisory note.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Result is one guard rail finding: a rule name, its severity, a
// human-readable explanation, and the parameter keys it concerns.
type Result struct {
	RuleName      string
	Severity      Severity
	Message       string
	ParameterKeys []string
}

// Engine evaluates every guard rail rule against a resolved parameter
// set. Rules never short-circuit each other — every rule always runs,
// and every finding it produces is returned.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the built-in guard rail policy. A compile error
// here is a programming error in the embedded policy, not a runtime
// condition, so callers should treat it as fatal at startup.
func NewEngine(ctx context.Context) (*Engine, error) {
	return newEngineFromPolicy(ctx, defaultPolicy)
}

// NewEngineFromPolicy compiles a caller-supplied Rego policy in place
// of the built-in one, for operators who need to extend or override
// the rule set.
func NewEngineFromPolicy(ctx context.Context, policy string) (*Engine, error) {
	return newEngineFromPolicy(ctx, policy)
}

func newEngineFromPolicy(ctx context.Context, policy string) (*Engine, error) {
	query, err := rego.New(
		rego.Query("data.guardrail.results"),
		rego.Module("policy.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, errors.FailedToWithDetails("compile guard rail policy", "guardrail", "policy.rego", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate runs every guard rail against params — a flattened map of
// resolved parameter key to scalar value — and returns every finding,
// sorted by rule name for a deterministic result across repeated
// calls with the same input.
func (e *Engine) Evaluate(ctx context.Context, params map[string]any) ([]Result, error) {
	resultSet, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"params": params}))
	if err != nil {
		return nil, errors.FailedToWithDetails("evaluate guard rails", "guardrail", "", err)
	}
	if len(resultSet) == 0 || len(resultSet[0].Expressions) == 0 {
		return nil, nil
	}

	raw, ok := resultSet[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("guardrail: unexpected policy output shape %T", resultSet[0].Expressions[0].Value)
	}

	out := make([]Result, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, decodeResult(m))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RuleName < out[j].RuleName })
	return out, nil
}

func decodeResult(m map[string]interface{}) Result {
	r := Result{
		RuleName: asString(m["rule_name"]),
		Severity: Severity(asString(m["severity"])),
		Message:  asString(m["message"]),
	}
	if keys, ok := m["parameter_keys"].([]interface{}); ok {
		for _, k := range keys {
			r.ParameterKeys = append(r.ParameterKeys, asString(k))
		}
	}
	return r
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// HasErrors reports whether any finding in results is an error-level
// finding; compilation halts when this is true.
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Severity == SeverityError {
			return true
		}
	}
	return false
}
