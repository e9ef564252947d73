// Package tracing wires OpenTelemetry tracing.
//
// When disabled, New returns a noop tracer and spans cost almost nothing.
// When enabled, spans are batched to an OTLP gRPC collector:
//
//	tracer, err := tracing.New(tracing.Config{
//		Enabled:  true,
//		Endpoint: "localhost:4317",
//		Insecure: true,
//		Sampler:  tracing.SamplerRatio,
//		SampleRatio: 0.1,
//	})
//	defer tracer.Shutdown(context.Background())
//
// The orchestrator opens one span per run ("evaluation.run") and one child
// span per rule ("evaluation.rule"). The HTTP middleware continues W3C trace
// context sent by clients.
package tracing
