// Package telemetry groups the observability packages used by the
// assessment service.
//
//   - logging: slog construction with request and run IDs pulled from context
//   - metrics: Prometheus collectors for HTTP, runs, rules and the worker pool
//   - tracing: OpenTelemetry spans around evaluation runs and HTTP requests
//   - health: liveness and readiness checks
package telemetry
