// Package rules defines evaluation rules and rule packs and evaluates a
// single rule against a set of bindings.
//
// A rule's effective bindings are the caller's base bindings overlaid by
// the rule's own thresholds. Evaluation never fails: a condition the
// sandbox rejects yields an Outcome of kind OutcomeRuleFailure whose result
// is recorded as not passed, so one bad rule cannot abort a run.
package rules
