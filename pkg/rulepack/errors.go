package rulepack

import (
	"fmt"
	"strings"
)

// IssueType categorizes a rule pack problem.
type IssueType string

const (
	IssueSyntax    IssueType = "syntax"    // document is not valid YAML/JSON
	IssueSchema    IssueType = "schema"    // document violates the rule pack schema
	IssueCondition IssueType = "condition" // condition rejected by the sandbox
	IssueDuplicate IssueType = "duplicate" // rule ID used more than once
	IssueReference IssueType = "reference" // condition references a name nothing binds
)

// Level is the severity of an issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one problem found while decoding or linting a rule pack.
type Issue struct {
	Type    IssueType `json:"type"`
	Level   Level     `json:"level"`
	RuleID  string    `json:"rule_id,omitempty"`
	Index   int       `json:"index"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
	// Suggestion is an optional hint for fixing the issue.
	Suggestion string `json:"suggestion,omitempty"`
}

// String formats the issue on one line.
func (i *Issue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] ", i.Type)
	switch {
	case i.RuleID != "":
		fmt.Fprintf(&sb, "rule %q: ", i.RuleID)
	case i.Path != "":
		fmt.Fprintf(&sb, "%s: ", i.Path)
	}
	sb.WriteString(i.Message)
	if i.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", i.Suggestion)
	}
	return sb.String()
}

// IssueList accumulates issues instead of stopping at the first one.
type IssueList struct {
	Issues []*Issue `json:"issues"`
}

// NewIssueList creates an empty list.
func NewIssueList() *IssueList {
	return &IssueList{Issues: make([]*Issue, 0)}
}

// Add appends an issue.
func (l *IssueList) Add(issue *Issue) {
	l.Issues = append(l.Issues, issue)
}

// Errorf appends an error-level issue.
func (l *IssueList) Errorf(t IssueType, index int, ruleID, format string, args ...any) {
	l.Add(&Issue{Type: t, Level: LevelError, Index: index, RuleID: ruleID, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning-level issue.
func (l *IssueList) Warnf(t IssueType, index int, ruleID, format string, args ...any) {
	l.Add(&Issue{Type: t, Level: LevelWarning, Index: index, RuleID: ruleID, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the error-level issues.
func (l *IssueList) Errors() []*Issue {
	return l.byLevel(LevelError)
}

// Warnings returns the warning-level issues.
func (l *IssueList) Warnings() []*Issue {
	return l.byLevel(LevelWarning)
}

func (l *IssueList) byLevel(level Level) []*Issue {
	var out []*Issue
	for _, issue := range l.Issues {
		if issue.Level == level {
			out = append(out, issue)
		}
	}
	return out
}

// ByType returns the issues of the given type.
func (l *IssueList) ByType(t IssueType) []*Issue {
	var out []*Issue
	for _, issue := range l.Issues {
		if issue.Type == t {
			out = append(out, issue)
		}
	}
	return out
}

// HasErrors reports whether any error-level issue was recorded.
func (l *IssueList) HasErrors() bool {
	return len(l.Errors()) > 0
}

// Error implements the error interface. Only error-level issues are listed.
func (l *IssueList) Error() string {
	errs := l.Errors()
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return "invalid rule pack: " + errs[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid rule pack: %d errors", len(errs))
	for _, issue := range errs {
		sb.WriteString("\n  ")
		sb.WriteString(issue.String())
	}
	return sb.String()
}

// ToError returns nil when there are no error-level issues, otherwise l.
func (l *IssueList) ToError() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}
