package rulepack

import (
	"errors"
	"sort"

	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/sandbox"
)

// Linter checks a decoded rule pack without evaluating it.
type Linter struct {
	sandbox *sandbox.Sandbox
	known   map[string]struct{}
}

// NewLinter creates a linter. knownVariables are the names the evaluation
// pipeline binds for every rule; references outside them, the rule's
// thresholds and its declared variables produce a warning.
func NewLinter(sb *sandbox.Sandbox, knownVariables []string) *Linter {
	if sb == nil {
		sb = sandbox.New(sandbox.DefaultLimits())
	}
	known := make(map[string]struct{}, len(knownVariables))
	for _, name := range knownVariables {
		known[name] = struct{}{}
	}
	return &Linter{sandbox: sb, known: known}
}

// Lint compiles every condition and reports all problems found. It never
// stops at the first failing rule.
func (l *Linter) Lint(pack *rules.RulePack) *IssueList {
	issues := NewIssueList()
	seen := make(map[string]int, len(pack.Rules))

	for i, rule := range pack.Rules {
		if rule.ID == "" {
			issues.Errorf(IssueSchema, i, "", "rule %d has no id", i)
		} else if first, dup := seen[rule.ID]; dup {
			issues.Errorf(IssueDuplicate, i, rule.ID, "duplicate rule id, first used by rule %d", first)
		} else {
			seen[rule.ID] = i
		}

		prog, err := l.sandbox.Compile(rule.Condition)
		if err != nil {
			issues.Add(&Issue{
				Type:    IssueCondition,
				Level:   LevelError,
				RuleID:  rule.ID,
				Index:   i,
				Message: err.Error(),
			})
			continue
		}
		l.checkReferences(i, rule, prog, issues)
	}
	return issues
}

func (l *Linter) checkReferences(index int, rule rules.Rule, prog *sandbox.Program, issues *IssueList) {
	available := make(map[string]struct{}, len(l.known)+len(rule.Thresholds)+len(rule.Variables))
	for name := range l.known {
		available[name] = struct{}{}
	}
	for name := range rule.Thresholds {
		available[name] = struct{}{}
	}
	for _, name := range rule.Variables {
		available[name] = struct{}{}
	}

	candidates := make([]string, 0, len(available))
	for name := range available {
		candidates = append(candidates, name)
	}
	sort.Strings(candidates)

	for _, name := range prog.Variables() {
		if _, ok := available[name]; ok {
			continue
		}
		issues.Add(&Issue{
			Type:       IssueReference,
			Level:      LevelWarning,
			RuleID:     rule.ID,
			Index:      index,
			Message:    "condition references " + name + ", which is neither bound nor declared",
			Suggestion: suggestName(name, candidates),
		})
	}
}

// Load decodes a rule pack and lints it. The pack is returned even when
// lint finds problems; err is non-nil only for decoding failures or
// error-level lint issues.
func Load(data []byte, format Format, linter *Linter) (*rules.RulePack, *IssueList, error) {
	pack, err := Decode(data, format)
	if err != nil {
		var list *IssueList
		if errors.As(err, &list) {
			return nil, list, err
		}
		return nil, nil, err
	}
	issues := linter.Lint(pack)
	return pack, issues, issues.ToError()
}
