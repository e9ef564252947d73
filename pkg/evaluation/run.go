package evaluation

import (
	"time"

	"idp-hq/assess/pkg/inclusivity"
	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/simulation"
)

// Inputs are the references a run was submitted with.
type Inputs struct {
	ArtifactID string `json:"artifact_id"`
	RulePackID string `json:"rulepack_id"`
	WebhookURL string `json:"webhook_url,omitempty"`
	Debug      bool   `json:"debug"`
}

// Results is the results document of a finished run.
type Results struct {
	Reach    simulation.ReachResult    `json:"reach"`
	Strength simulation.StrengthResult `json:"strength"`
	Visual   simulation.VisualResult   `json:"visual"`
	// Rules holds one result per rule, in rule pack order.
	Rules []rules.RuleResult `json:"rules"`
}

// TraceEntry records one rule evaluation of a debug run.
type TraceEntry struct {
	RuleID   string         `json:"rule_id"`
	Bindings map[string]any `json:"bindings"`
	Passed   bool           `json:"passed"`
	Outcome  string         `json:"outcome"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// Run is one evaluation of an artifact under a scenario against a rule pack.
type Run struct {
	ID          string             `json:"id"`
	ScenarioID  string             `json:"scenario_id"`
	Status      Status             `json:"status"`
	Inputs      Inputs             `json:"inputs"`
	Results     *Results           `json:"results,omitempty"`
	Index       *inclusivity.Index `json:"inclusivity_index,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Error       string             `json:"error,omitempty"`
	// ErrorDetail holds the full diagnostic of a pipeline fault. It is only
	// recorded for debug runs.
	ErrorDetail string       `json:"error_detail,omitempty"`
	Trace       []TraceEntry `json:"trace,omitempty"`
}

// Clone returns a copy of r that shares no mutable state with it.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	if r.Results != nil {
		res := *r.Results
		if r.Results.Rules != nil {
			res.Rules = make([]rules.RuleResult, len(r.Results.Rules))
			for i, rr := range r.Results.Rules {
				res.Rules[i] = rr.Clone()
			}
		}
		out.Results = &res
	}
	if r.Index != nil {
		idx := *r.Index
		out.Index = &idx
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	if r.Trace != nil {
		out.Trace = make([]TraceEntry, len(r.Trace))
		for i, e := range r.Trace {
			out.Trace[i] = e
			if e.Bindings != nil {
				out.Trace[i].Bindings = make(map[string]any, len(e.Bindings))
				for k, v := range e.Bindings {
					out.Trace[i].Bindings[k] = v
				}
			}
		}
	}
	return &out
}

// Metrics returns the run's submission metadata in the shape exposed by
// the fetch API.
func (r *Run) Metrics() map[string]any {
	m := map[string]any{
		"artifact_id": r.Inputs.ArtifactID,
		"rulepack_id": r.Inputs.RulePackID,
		"scenario_id": r.ScenarioID,
		"webhook_url": nil,
		"debug":       r.Inputs.Debug,
		"log":         nil,
	}
	if r.Inputs.WebhookURL != "" {
		m["webhook_url"] = r.Inputs.WebhookURL
	}
	if r.Inputs.Debug {
		trace := r.Trace
		if trace == nil {
			trace = []TraceEntry{}
		}
		m["log"] = trace
	}
	if r.Error != "" {
		m["error"] = r.Error
		if r.ErrorDetail != "" {
			m["error_detail"] = r.ErrorDetail
		}
	}
	return m
}

// Finalization is the data written when a run completes successfully.
type Finalization struct {
	Results     Results
	Index       inclusivity.Index
	CompletedAt time.Time
	Trace       []TraceEntry
}

// Failure is the data written when a run ends in a pipeline fault.
type Failure struct {
	Message     string
	Detail      string
	CompletedAt time.Time
	Trace       []TraceEntry
}
