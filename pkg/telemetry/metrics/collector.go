package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the collector.
type Config struct {
	// Enabled turns recording on. A disabled collector still serves an
	// empty registry.
	Enabled bool

	// Namespace prefixes every metric name.
	// Default: "idp"
	Namespace string

	// Subsystem is the second name component.
	// Default: "assess"
	Subsystem string

	// RunDurationBuckets are histogram buckets for run duration in seconds.
	RunDurationBuckets []float64
}

// Collector owns every metric of the process.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	worker     *WorkerMetrics
	http       *HTTPMetrics
}

// NewCollector creates a collector. If registry is nil a new private
// registry is created.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "idp"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "assess"
	}
	if len(cfg.RunDurationBuckets) == 0 {
		// Runs are CPU bound and short; 1ms to 10s.
		cfg.RunDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}
	}

	return &Collector{
		config:     cfg,
		registry:   registry,
		evaluation: NewEvaluationMetrics(cfg, registry),
		worker:     NewWorkerMetrics(cfg, registry),
		http:       NewHTTPMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRun records a run reaching a terminal status.
func (c *Collector) RecordRun(status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.evaluation.RecordRun(status, duration)
}

// RecordRuleOutcome records one rule evaluation by outcome kind.
func (c *Collector) RecordRuleOutcome(kind string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.evaluation.RecordRule(kind, duration)
}

// RecordPipelineFault records a run failing at the given stage.
func (c *Collector) RecordPipelineFault(stage string) {
	if !c.enabled() {
		return
	}
	c.evaluation.RecordFault(stage)
}

// RecordWebhook records a webhook attempt. result is one of "delivered",
// "failed" or "skipped".
func (c *Collector) RecordWebhook(result string) {
	if !c.enabled() {
		return
	}
	c.evaluation.RecordWebhook(result)
}

// RecordCatalogReload records a rule pack catalog reload.
func (c *Collector) RecordCatalogReload(success bool) {
	if !c.enabled() {
		return
	}
	c.evaluation.RecordReload(success)
}

// SetQueueDepth sets the number of runs waiting for a worker.
func (c *Collector) SetQueueDepth(n int) {
	if !c.enabled() {
		return
	}
	c.worker.queueDepth.Set(float64(n))
}

// SetInFlight sets the number of runs currently executing.
func (c *Collector) SetInFlight(n int) {
	if !c.enabled() {
		return
	}
	c.worker.inFlight.Set(float64(n))
}

// RecordDispatchRejected records a dispatch refused by the worker pool.
func (c *Collector) RecordDispatchRejected(reason string) {
	if !c.enabled() {
		return
	}
	c.worker.rejected.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records a served API request.
func (c *Collector) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.http.Record(method, route, code, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
