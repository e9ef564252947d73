package rules

// OutcomeKind distinguishes a normal evaluation from a rule-local failure.
type OutcomeKind int

const (
	// OutcomeSuccess means the condition evaluated; Result.Passed holds its value.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRuleFailure means the sandbox rejected the condition. The
	// result is recorded as failed and the run continues.
	OutcomeRuleFailure
)

// String returns the kind name used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRuleFailure:
		return "rule_failure"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result of Evaluate. Callers switch on Kind
// instead of recovering from errors.
type Outcome struct {
	Kind   OutcomeKind
	Result RuleResult
	// Err is the sandbox rejection for OutcomeRuleFailure, nil otherwise.
	Err error
}

// Failed reports whether the outcome is a rule-local failure.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeRuleFailure
}
