package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks runs, rules and webhooks.
//
// Metrics:
//   - idp_assess_runs_total: Terminal runs by status
//   - idp_assess_run_duration_seconds: Run duration histogram
//   - idp_assess_rule_outcomes_total: Rule evaluations by outcome kind
//   - idp_assess_rule_duration_seconds: Rule evaluation duration
//   - idp_assess_pipeline_faults_total: Pipeline faults by stage
//   - idp_assess_webhooks_total: Webhook attempts by result
//   - idp_assess_catalog_reloads_total: Rule pack reloads by result
type EvaluationMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	ruleOutcomes  *prometheus.CounterVec
	ruleDuration  prometheus.Histogram
	faultsTotal   *prometheus.CounterVec
	webhooksTotal *prometheus.CounterVec
	reloadsTotal  *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg Config, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Evaluation runs that reached a terminal status",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of evaluation runs in seconds",
				Buckets:   cfg.RunDurationBuckets,
			},
		),

		ruleOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_outcomes_total",
				Help:      "Rule evaluations by outcome kind",
			},
			[]string{"kind"},
		),

		ruleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_duration_seconds",
				Help:      "Duration of single rule evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to ~160ms
			},
		),

		faultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pipeline_faults_total",
				Help:      "Runs that failed with a pipeline fault, by stage",
			},
			[]string{"stage"},
		),

		webhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "webhooks_total",
				Help:      "Completion webhook attempts by result",
			},
			[]string{"result"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_reloads_total",
				Help:      "Rule pack catalog reloads by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		em.runsTotal,
		em.runDuration,
		em.ruleOutcomes,
		em.ruleDuration,
		em.faultsTotal,
		em.webhooksTotal,
		em.reloadsTotal,
	)

	return em
}

// RecordRun records a terminal run.
func (em *EvaluationMetrics) RecordRun(status string, duration time.Duration) {
	em.runsTotal.WithLabelValues(status).Inc()
	em.runDuration.Observe(duration.Seconds())
}

// RecordRule records a rule outcome.
func (em *EvaluationMetrics) RecordRule(kind string, duration time.Duration) {
	em.ruleOutcomes.WithLabelValues(kind).Inc()
	em.ruleDuration.Observe(duration.Seconds())
}

// RecordFault records a pipeline fault.
func (em *EvaluationMetrics) RecordFault(stage string) {
	em.faultsTotal.WithLabelValues(stage).Inc()
}

// RecordWebhook records a webhook attempt.
func (em *EvaluationMetrics) RecordWebhook(result string) {
	em.webhooksTotal.WithLabelValues(result).Inc()
}

// RecordReload records a catalog reload.
func (em *EvaluationMetrics) RecordReload(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	em.reloadsTotal.WithLabelValues(result).Inc()
}
