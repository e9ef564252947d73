package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkerMetrics tracks the in-process worker pool.
type WorkerMetrics struct {
	queueDepth prometheus.Gauge
	inFlight   prometheus.Gauge
	rejected   *prometheus.CounterVec
}

// NewWorkerMetrics creates and registers worker pool metrics.
func NewWorkerMetrics(cfg Config, registry *prometheus.Registry) *WorkerMetrics {
	wm := &WorkerMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "worker_queue_depth",
			Help:      "Runs waiting for a worker",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "worker_in_flight",
			Help:      "Runs currently executing",
		}),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "worker_rejected_total",
				Help:      "Dispatches refused by the worker pool, by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(wm.queueDepth, wm.inFlight, wm.rejected)
	return wm
}
