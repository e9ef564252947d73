package rules

import (
	"fmt"
	"log/slog"

	"idp-hq/assess/pkg/sandbox"
)

// Evaluator runs rule conditions in a sandbox. It is stateless apart from
// its configuration and safe for concurrent use.
type Evaluator struct {
	sandbox *sandbox.Sandbox
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator. A nil sandbox uses the default limits
// and a nil logger uses slog.Default.
func NewEvaluator(sb *sandbox.Sandbox, logger *slog.Logger) *Evaluator {
	if sb == nil {
		sb = sandbox.New(sandbox.DefaultLimits())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		sandbox: sb,
		logger:  logger.With("component", "rules.evaluator"),
	}
}

// EffectiveBindings overlays the rule's thresholds on base. Thresholds win
// on name collisions. base is not modified.
func EffectiveBindings(rule Rule, base sandbox.Bindings) sandbox.Bindings {
	out := make(sandbox.Bindings, len(base)+len(rule.Thresholds))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range rule.Thresholds {
		out[k] = v
	}
	return out
}

// Evaluate evaluates rule against base. A sandbox rejection never escapes:
// it becomes an OutcomeRuleFailure with Passed=false and the rejection
// message recorded in the result details.
func (e *Evaluator) Evaluate(rule Rule, base sandbox.Bindings) Outcome {
	bindings := EffectiveBindings(rule, base)
	result := RuleResult{
		ID:          rule.ID,
		Severity:    rule.EffectiveSeverity(),
		Remediation: rule.Remediation,
		Details:     Details{Variables: snapshot(bindings)},
	}

	passed, err := e.sandbox.Evaluate(rule.Condition, bindings)
	if err != nil {
		result.Details.Error = err.Error()
		e.logger.Debug("rule rejected",
			"rule_id", rule.ID,
			"reason", sandbox.ReasonOf(err),
			"error", err)
		return Outcome{Kind: OutcomeRuleFailure, Result: result, Err: err}
	}

	result.Passed = passed
	e.logger.Debug("rule evaluated",
		"rule_id", rule.ID,
		"passed", passed)
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

// Evaluate evaluates rule with the default sandbox limits and logger.
func Evaluate(rule Rule, base sandbox.Bindings) Outcome {
	return NewEvaluator(nil, nil).Evaluate(rule, base)
}

// snapshot copies bindings into JSON-friendly values. Values the sandbox
// would reject are recorded as their printed form.
func snapshot(b sandbox.Bindings) map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		if val, err := sandbox.FromAny(v); err == nil {
			out[k] = val.Interface()
			continue
		}
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
