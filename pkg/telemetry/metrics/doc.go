// Package metrics provides Prometheus metrics for the evaluation engine.
//
// # Metrics Categories
//
//   - Run metrics: terminal runs by status, run duration
//   - Rule metrics: rule outcomes by kind, rule evaluation duration
//   - Webhook metrics: deliveries by result
//   - Worker metrics: queue depth, in-flight runs, rejected dispatches
//   - HTTP metrics: API requests by route and status code
//   - Catalog metrics: rule pack reloads by result
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.Config{Enabled: true}, nil)
//	collector.RecordRun("done", 120*time.Millisecond)
//	collector.RecordRuleOutcome("rule_failure", time.Millisecond)
//	http.Handle("/metrics", collector.Handler())
//
// Every collector owns a private registry, so tests can build as many as
// they need. A nil *Collector is valid and records nothing.
//
//	# HELP idp_assess_runs_total Evaluation runs that reached a terminal status
//	# TYPE idp_assess_runs_total counter
//	idp_assess_runs_total{status="done"} 42
package metrics
