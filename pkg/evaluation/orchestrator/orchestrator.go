package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/notify"
	"idp-hq/assess/pkg/inclusivity"
	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/sandbox"
	"idp-hq/assess/pkg/simulation"
	"idp-hq/assess/pkg/telemetry/logging"
	"idp-hq/assess/pkg/telemetry/metrics"
	"idp-hq/assess/pkg/telemetry/tracing"
)

// Notifier delivers the completion webhook of a run. It returns
// notify.ErrSkipped when no delivery was attempted.
type Notifier interface {
	Notify(ctx context.Context, url string, payload notify.Payload) error
}

// Config configures the orchestrator.
type Config struct {
	// Limits bounds rule conditions.
	Limits sandbox.Limits

	// StackTraces records the goroutine stack of a panic in the error
	// detail of debug runs.
	StackTraces bool

	// StoreTimeout bounds the terminal write, which uses a context
	// detached from the caller so a cancelled worker still records the
	// outcome.
	// Default: 10 seconds
	StoreTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Limits:       sandbox.DefaultLimits(),
		StackTraces:  true,
		StoreTimeout: 10 * time.Second,
	}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator executes runs. It holds no per-run state and is safe for
// concurrent use; at most one execution per run ID is the caller's job.
type Orchestrator struct {
	config    Config
	store     evaluation.Store
	refs      evaluation.Resolver
	notifier  Notifier
	evaluator *rules.Evaluator

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time
}

// New creates an orchestrator. notifier may be nil to disable webhooks.
func New(cfg Config, store evaluation.Store, refs evaluation.Resolver, notifier Notifier, opts ...Option) *Orchestrator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}

	o := &Orchestrator{
		config:   cfg,
		store:    store,
		refs:     refs,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = tracing.Noop()
	}

	o.evaluator = rules.NewEvaluator(sandbox.New(cfg.Limits), o.logger)
	o.logger = o.logger.With("component", "evaluation.orchestrator")
	return o
}

// Report describes what one Execute call did.
type Report struct {
	RunID string

	// Status is the run's status after the call.
	Status evaluation.Status

	// NoOp is set when the call changed nothing, e.g. the run was already
	// terminal. Reason says why.
	NoOp   bool
	Reason string

	// Fault is set when the run ended in error.
	Fault *evaluation.PipelineFault

	// Webhook is "delivered", "failed", "skipped" or empty when the run did
	// not reach done.
	Webhook string

	Duration time.Duration
}

// Execute runs the evaluation pipeline for runID. It never returns an error
// and never panics; the outcome is recorded on the run and summarized in
// the Report.
func (o *Orchestrator) Execute(ctx context.Context, runID string) Report {
	start := o.now()
	ctx = logging.WithRunID(ctx, runID)
	ctx, span := o.tracer.Start(ctx, "evaluation.run", trace.WithAttributes(attribute.String(tracing.AttrRunID, runID)))
	defer span.End()

	report := o.execute(ctx, span, runID)
	report.Duration = o.now().Sub(start)

	span.SetAttributes(attribute.String(tracing.AttrRunStatus, string(report.Status)))
	if report.Fault != nil {
		tracing.SetStatus(span, report.Fault)
	}
	if !report.NoOp {
		o.metrics.RecordRun(string(report.Status), report.Duration)
	}
	return report
}

func (o *Orchestrator) execute(ctx context.Context, span trace.Span, runID string) Report {
	report := Report{RunID: runID}

	run, err := o.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, evaluation.ErrRunNotFound) {
			o.logger.WarnContext(ctx, "run not found, nothing to execute")
			report.NoOp = true
			report.Reason = "run not found"
			return report
		}
		return o.fail(ctx, nil, runID, evaluation.NewPipelineFault(runID, evaluation.StageLoad, err), nil)
	}

	if run.Status.IsTerminal() {
		o.logger.InfoContext(ctx, "run already terminal, skipping", "status", run.Status)
		report.Status = run.Status
		report.NoOp = true
		report.Reason = "run already " + string(run.Status)
		return report
	}

	span.SetAttributes(tracing.RunAttributes(run.ID, run.ScenarioID, run.Inputs.RulePackID)...)

	var (
		scenario *evaluation.Scenario
		pack     *rules.RulePack
	)
	fault := o.stage(run, evaluation.StageLoad, func() error {
		var err error
		if scenario, err = o.refs.Scenario(ctx, run.ScenarioID); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		if pack, err = o.refs.RulePack(ctx, run.Inputs.RulePackID); err != nil {
			return fmt.Errorf("load rule pack: %w", err)
		}
		if _, err = o.refs.Artifact(ctx, run.Inputs.ArtifactID); err != nil {
			return fmt.Errorf("load artifact: %w", err)
		}
		return nil
	})
	if fault != nil {
		return o.fail(ctx, run, runID, fault, nil)
	}

	// A run loaded as running was interrupted before reaching a terminal
	// state. The pool admits one execution per ID, so it is resumed here.
	if run.Status == evaluation.StatusRunning {
		o.logger.WarnContext(ctx, "resuming interrupted run")
	} else if err := o.store.Transition(ctx, runID, evaluation.StatusRunning); err != nil {
		return o.fail(ctx, run, runID, evaluation.NewPipelineFault(runID, evaluation.StageStart, err), nil)
	}
	o.logger.InfoContext(ctx, "run started",
		"scenario_id", run.ScenarioID,
		"rulepack_id", pack.ID,
		"rules", len(pack.Rules),
		"debug", run.Inputs.Debug)

	var sim simulation.Outcome
	fault = o.stage(run, evaluation.StageSimulate, func() error {
		var err error
		sim, err = simulation.Simulate(scenario.Config)
		return err
	})
	if fault != nil {
		return o.fail(ctx, run, runID, fault, nil)
	}

	var (
		results = make([]rules.RuleResult, 0, len(pack.Rules))
		trail   []evaluation.TraceEntry
	)
	fault = o.stage(run, evaluation.StageEvaluate, func() error {
		base := BaseBindings(sim)
		for _, rule := range pack.Rules {
			entry := o.evaluateRule(ctx, rule, RuleBindings(rule, base, scenario.Config))
			results = append(results, entry.result)
			if run.Inputs.Debug {
				trail = append(trail, entry.trace)
			}
		}
		return nil
	})
	if fault != nil {
		return o.fail(ctx, run, runID, fault, trail)
	}

	index := inclusivity.Compute(sim.Reach.OK, sim.Strength.OK, sim.Visual.OK)
	final := evaluation.Finalization{
		Results: evaluation.Results{
			Reach:    sim.Reach,
			Strength: sim.Strength,
			Visual:   sim.Visual,
			Rules:    results,
		},
		Index:       index,
		CompletedAt: o.now().UTC(),
		Trace:       trail,
	}

	if err := o.finalize(ctx, runID, final); err != nil {
		return o.fail(ctx, run, runID, evaluation.NewPipelineFault(runID, evaluation.StageFinalize, err), trail)
	}

	span.SetAttributes(attribute.Float64(tracing.AttrScore, index.Score))
	o.logger.InfoContext(ctx, "run completed",
		"score", index.Score,
		"rules", len(results))

	report.Status = evaluation.StatusDone
	report.Webhook = o.sendWebhook(ctx, run, final)
	return report
}

type ruleEntry struct {
	result rules.RuleResult
	trace  evaluation.TraceEntry
}

func (o *Orchestrator) evaluateRule(ctx context.Context, rule rules.Rule, bindings sandbox.Bindings) ruleEntry {
	_, span := o.tracer.Start(ctx, "evaluation.rule", trace.WithAttributes(attribute.String(tracing.AttrRuleID, rule.ID)))
	defer span.End()

	start := time.Now()
	outcome := o.evaluator.Evaluate(rule, bindings)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String(tracing.AttrRuleResult, outcome.Kind.String()),
		attribute.Bool(tracing.AttrRulePassed, outcome.Result.Passed),
	)
	o.metrics.RecordRuleOutcome(outcome.Kind.String(), elapsed)

	return ruleEntry{
		result: outcome.Result,
		trace: evaluation.TraceEntry{
			RuleID:   rule.ID,
			Bindings: outcome.Result.Details.Variables,
			Passed:   outcome.Result.Passed,
			Outcome:  outcome.Kind.String(),
			Error:    outcome.Result.Details.Error,
			Duration: elapsed,
		},
	}
}

// stage runs fn, converting a returned error or a panic into a fault.
func (o *Orchestrator) stage(run *evaluation.Run, stage evaluation.Stage, fn func() error) (fault *evaluation.PipelineFault) {
	defer func() {
		if r := recover(); r != nil {
			fault = evaluation.NewPipelineFault(run.ID, stage, fmt.Errorf("panic: %v", r))
			fault.Stack = string(debug.Stack())
		}
	}()

	if err := fn(); err != nil {
		return evaluation.NewPipelineFault(run.ID, stage, err)
	}
	return nil
}

// finalize writes the terminal state on a context that survives the
// caller's cancellation.
func (o *Orchestrator) finalize(ctx context.Context, runID string, f evaluation.Finalization) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.StoreTimeout)
	defer cancel()
	return o.store.Finalize(wctx, runID, f)
}

// fail records fault on the run. run may be nil when it could not be
// loaded; the detail is then never recorded.
func (o *Orchestrator) fail(ctx context.Context, run *evaluation.Run, runID string, fault *evaluation.PipelineFault, trail []evaluation.TraceEntry) Report {
	o.logger.ErrorContext(ctx, "run failed",
		"stage", fault.Stage,
		"error", fault.Cause)
	o.metrics.RecordPipelineFault(string(fault.Stage))

	failure := evaluation.Failure{
		Message:     fmt.Sprintf("%s: %v", fault.Stage, fault.Cause),
		CompletedAt: o.now().UTC(),
		Trace:       trail,
	}
	if run != nil && run.Inputs.Debug {
		failure.Detail = fault.Error()
		if o.config.StackTraces && fault.Stack != "" {
			failure.Detail += "\n\n" + fault.Stack
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.StoreTimeout)
	defer cancel()

	report := Report{RunID: runID, Status: evaluation.StatusError, Fault: fault}
	if err := o.store.Fail(wctx, runID, failure); err != nil {
		o.logger.ErrorContext(ctx, "failed to record run failure", "error", err)
		report.Status = ""
		if current, getErr := o.store.Get(wctx, runID); getErr == nil {
			report.Status = current.Status
		}
	}
	return report
}

func (o *Orchestrator) sendWebhook(ctx context.Context, run *evaluation.Run, final evaluation.Finalization) string {
	if o.notifier == nil {
		o.metrics.RecordWebhook("skipped")
		return "skipped"
	}

	err := o.notifier.Notify(ctx, run.Inputs.WebhookURL, notify.PayloadFor(run.ID, final))
	switch {
	case err == nil:
		o.metrics.RecordWebhook("delivered")
		o.logger.InfoContext(ctx, "webhook delivered")
		return "delivered"
	case errors.Is(err, notify.ErrSkipped):
		o.metrics.RecordWebhook("skipped")
		return "skipped"
	default:
		o.metrics.RecordWebhook("failed")
		o.logger.WarnContext(ctx, "webhook failed", "error", err)
		return "failed"
	}
}
