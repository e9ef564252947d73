package rules

// DefaultSeverity is used when a rule does not declare a severity.
const DefaultSeverity = "info"

// Rule is one evaluation rule. Rules are immutable for the duration of a run.
type Rule struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name,omitempty" yaml:"name,omitempty"`
	Variables   []string           `json:"variables,omitempty" yaml:"variables,omitempty"`
	Thresholds  map[string]float64 `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Condition   string             `json:"condition" yaml:"condition"`
	Severity    string             `json:"severity,omitempty" yaml:"severity,omitempty"`
	Remediation *string            `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	Citation    *string            `json:"citation,omitempty" yaml:"citation,omitempty"`
}

// EffectiveSeverity returns the rule severity or DefaultSeverity.
func (r Rule) EffectiveSeverity() string {
	if r.Severity == "" {
		return DefaultSeverity
	}
	return r.Severity
}

// Clone returns a deep copy of r.
func (r Rule) Clone() Rule {
	out := r
	if r.Variables != nil {
		out.Variables = append([]string(nil), r.Variables...)
	}
	if r.Thresholds != nil {
		out.Thresholds = make(map[string]float64, len(r.Thresholds))
		for k, v := range r.Thresholds {
			out.Thresholds[k] = v
		}
	}
	if r.Remediation != nil {
		s := *r.Remediation
		out.Remediation = &s
	}
	if r.Citation != nil {
		s := *r.Citation
		out.Citation = &s
	}
	return out
}

// RulePack is a named, versioned, ordered collection of rules scoped to an
// organization.
type RulePack struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	OrgID   string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	Rules   []Rule `json:"rules" yaml:"rules"`
}

// Snapshot returns a deep copy of the pack. Runs evaluate a snapshot so
// later changes to the source pack cannot affect them.
func (p *RulePack) Snapshot() *RulePack {
	if p == nil {
		return nil
	}
	out := *p
	out.Rules = make([]Rule, len(p.Rules))
	for i, r := range p.Rules {
		out.Rules[i] = r.Clone()
	}
	return &out
}

// Details records the inputs of one rule evaluation.
type Details struct {
	// Variables is the effective binding set the condition was evaluated with.
	Variables map[string]any `json:"variables"`

	// Error is the sandbox rejection message when the condition could not be evaluated.
	Error string `json:"error,omitempty"`
}

// RuleResult is the outcome of evaluating one rule.
type RuleResult struct {
	ID          string  `json:"id"`
	Passed      bool    `json:"passed"`
	Severity    string  `json:"severity"`
	Remediation *string `json:"remediation,omitempty"`
	Details     Details `json:"details"`
}

// Clone returns a copy of r that shares no mutable state with it. Binding
// values are numbers or booleans, so copying the map is enough.
func (r RuleResult) Clone() RuleResult {
	out := r
	if r.Remediation != nil {
		s := *r.Remediation
		out.Remediation = &s
	}
	out.Details.Variables = cloneBindings(r.Details.Variables)
	return out
}

func cloneBindings(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
