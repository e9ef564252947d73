// Package source loads the entities evaluations reference from disk.
//
// A Catalog reads rule packs, scenarios, artifacts and anthropometric
// datasets from configured directories and serves them as an
// evaluation.Resolver and an anthro.Catalog. Rule packs are decoded,
// schema-validated and linted on every load.
//
// Reloads are all-or-nothing: if any file fails to load the catalog keeps
// serving its previous contents and Reload returns the error. Watch reloads
// on file changes, debounced so an editor's save burst triggers one reload.
//
// Runs never see a reload mid-flight; the orchestrator takes a snapshot of
// the rule pack when it loads a run.
package source
