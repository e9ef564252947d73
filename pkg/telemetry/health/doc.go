// Package health serves liveness and readiness probes.
//
// Liveness (/health) answers 200 whenever the process can serve HTTP.
// Readiness (/ready) runs the registered component checks, for example the
// run store and the rule pack catalog, and answers 503 when any fails:
//
//	checker := health.New(2*time.Second, version)
//	checker.Register("store", func(ctx context.Context) error {
//		_, err := store.List(ctx, evaluation.Filter{Limit: 1})
//		return err
//	})
//	mux.Handle("GET /ready", checker.ReadinessHandler())
package health
