package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"idp-hq/assess/pkg/evaluation/orchestrator"
	"idp-hq/assess/pkg/telemetry/metrics"
)

var (
	// ErrClosed is returned once the pool no longer accepts runs.
	ErrClosed = errors.New("worker pool is closed")

	// ErrQueueFull is returned when the queue is saturated.
	ErrQueueFull = errors.New("worker pool queue is full")

	// ErrAlreadyDispatched is returned for a run ID that is still queued or
	// executing.
	ErrAlreadyDispatched = errors.New("run already dispatched")

	// ErrRunIDRequired is returned for an empty run ID.
	ErrRunIDRequired = errors.New("run id is required")
)

// Executor executes one run. *orchestrator.Orchestrator implements it.
type Executor interface {
	Execute(ctx context.Context, runID string) orchestrator.Report
}

// Config configures a Pool.
type Config struct {
	// Workers is the number of concurrent executions.
	// Default: 4
	Workers int

	// QueueSize bounds the runs waiting for a worker.
	// Default: 256
	QueueSize int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{Workers: 4, QueueSize: 256}
}

// Stats reports pool counters.
type Stats struct {
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Rejected   int64 `json:"rejected"`
	InFlight   int64 `json:"in_flight"`
	QueueDepth int64 `json:"queue_depth"`
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pool) { p.metrics = m }
}

// Pool is a bounded worker pool executing run IDs.
type Pool struct {
	exec    Executor
	queue   chan string
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Collector

	// ctx is the parent of every execution; cancel aborts them on a
	// drain deadline.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending map[string]struct{}

	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	inFlight  atomic.Int64
}

// NewPool creates a pool and starts its workers.
func NewPool(cfg Config, exec Executor, opts ...Option) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		exec:    exec,
		queue:   make(chan string, cfg.QueueSize),
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "worker.pool")

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	p.logger.Info("worker pool started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return p
}

// Dispatch enqueues runID without blocking. It implements
// evaluation.Dispatcher.
func (p *Pool) Dispatch(ctx context.Context, runID string) error {
	if runID == "" {
		return ErrRunIDRequired
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.reject(ctx, runID, "closed", ErrClosed)
	}
	if _, dup := p.pending[runID]; dup {
		return p.reject(ctx, runID, "duplicate", ErrAlreadyDispatched)
	}

	select {
	case p.queue <- runID:
		p.pending[runID] = struct{}{}
		p.submitted.Add(1)
		p.metrics.SetQueueDepth(len(p.queue))
		p.logger.DebugContext(ctx, "run dispatched", "run_id", runID)
		return nil
	default:
		return p.reject(ctx, runID, "queue_full", ErrQueueFull)
	}
}

func (p *Pool) reject(ctx context.Context, runID, reason string, err error) error {
	p.rejected.Add(1)
	p.metrics.RecordDispatchRejected(reason)
	p.logger.WarnContext(ctx, "run rejected", "run_id", runID, "reason", reason)
	return fmt.Errorf("dispatch %s: %w", runID, err)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for runID := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		p.metrics.SetInFlight(int(p.inFlight.Add(1)))

		p.run(runID)

		p.mu.Lock()
		delete(p.pending, runID)
		p.mu.Unlock()

		p.completed.Add(1)
		p.metrics.SetInFlight(int(p.inFlight.Add(-1)))
	}
}

// run executes one run. The orchestrator never panics by contract; the
// recover keeps a misbehaving Executor from killing the worker.
func (p *Pool) run(runID string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("executor panicked", "run_id", runID, "panic", r)
		}
	}()

	report := p.exec.Execute(p.ctx, runID)
	p.logger.Debug("run executed",
		"run_id", runID,
		"status", report.Status,
		"no_op", report.NoOp,
		"duration", report.Duration,
	)
}

// Drain stops accepting runs and waits for queued and executing runs to
// finish. If ctx expires first, executing runs are cancelled and Drain
// returns ctx.Err().
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool drained", "completed", p.completed.Load())
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool drain timed out, cancelling runs",
			"in_flight", p.inFlight.Load(),
			"queued", len(p.queue),
		)
		return ctx.Err()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Rejected:   p.rejected.Load(),
		InFlight:   p.inFlight.Load(),
		QueueDepth: int64(len(p.queue)),
	}
}
