// Package orchestrator executes evaluation runs.
//
// Execute is the unit of work for one run ID. It loads the run and its
// references, moves the run to running, simulates the scenario, evaluates
// every rule of the pack in order, aggregates the inclusivity index and
// writes everything back in a single Finalize call. An optional webhook is
// attempted once after the run is done.
//
// Rule rejections are data: they become failed rule results and the run
// continues. Anything else that goes wrong, panics included, is a pipeline
// fault. The run is moved to error and the fault is reported in the
// returned Report; Execute itself never fails or panics.
//
// Execute refuses to touch terminal runs, so invoking it twice for the
// same ID never regresses a run's status.
package orchestrator
