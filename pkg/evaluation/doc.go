// Package evaluation defines evaluation runs and the operations around them.
//
// A run evaluates one artifact under one scenario against one rule pack.
// It moves through the statuses pending, queued, running and then done or
// error. Statuses only move forward and the terminal statuses accept no
// further change; CanTransition encodes the rule and every Store enforces
// it on write.
//
// Service is the entry point used by the HTTP API and the CLI:
//
//	svc := evaluation.NewService(store, resolver, pool, logger)
//	res, err := svc.Submit(ctx, evaluation.Submission{
//		ArtifactID: "panel-a",
//		ScenarioID: "kiosk-seated",
//		RulePackID: "core",
//	})
//
// Execution of a run lives in the orchestrator subpackage; persistence in
// the storage subpackage.
package evaluation
