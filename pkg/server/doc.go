// Package server exposes the assessment service over HTTP.
//
// The server ties the evaluation service, the anthropometric dataset
// catalog, health checks and the metrics registry to a single mux and
// manages its lifecycle.
//
// # Routes
//
//	POST   /api/v1/evaluations                              submit a run (202)
//	GET    /api/v1/evaluations/{id}                         fetch a run
//	DELETE /api/v1/evaluations/{id}                         delete a terminal run
//	GET    /api/v1/datasets/anthropometrics/{id}            fetch a dataset
//	GET    /api/v1/datasets/anthropometrics/{id}/percentile percentile lookup
//	GET    /health, /api/v1/health                          liveness
//	GET    /ready                                           readiness
//	GET    /metrics                                         Prometheus scrape
//
// Errors are JSON objects of the form {"detail": "..."}.
//
// # Middleware
//
// Every request passes through, outermost first: request ID, access
// logging, panic recovery, tracing and per-route metrics.
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Server, server.Dependencies{
//	    Evaluations: service,
//	    Datasets:    catalog,
//	    Health:      checker,
//	    Metrics:     collector,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
package server
