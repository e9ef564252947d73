package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"idp-hq/assess/pkg/config"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/notify"
	"idp-hq/assess/pkg/evaluation/orchestrator"
	"idp-hq/assess/pkg/evaluation/storage"
	"idp-hq/assess/pkg/rulepack"
	"idp-hq/assess/pkg/rulepack/source"
	"idp-hq/assess/pkg/sandbox"
	"idp-hq/assess/pkg/telemetry/metrics"
	"idp-hq/assess/pkg/telemetry/tracing"
)

// runStore is a closable evaluation.Store.
type runStore interface {
	evaluation.Store
	Close() error
}

// app holds the components shared by serve and evaluate.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *metrics.Collector
	tracer       *tracing.Tracer
	store        runStore
	catalog      *source.Catalog
	orchestrator *orchestrator.Orchestrator
}

// newApp wires storage, the document catalog, telemetry and the
// orchestrator. Close releases everything it opened.
func newApp(cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	a.metrics = metrics.NewCollector(metrics.Config{
		Enabled:   cfg.Telemetry.Metrics.Enabled,
		Namespace: cfg.Telemetry.Metrics.Namespace,
	}, nil)

	a.tracer, err = tracing.New(tracing.Config{
		Enabled:        cfg.Telemetry.Tracing.Enabled,
		ServiceName:    cfg.Telemetry.Tracing.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Tracing.Endpoint,
		Insecure:       cfg.Telemetry.Tracing.Insecure,
		Sampler:        cfg.Telemetry.Tracing.Sampler,
		SampleRatio:    cfg.Telemetry.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	a.store, err = openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	limits := sandboxLimits(cfg.Evaluation.Sandbox)
	a.catalog, err = source.NewCatalog(source.Config{
		RulePackDir:      cfg.Catalog.RulePackDir,
		ScenarioDir:      cfg.Catalog.ScenarioDir,
		ArtifactDir:      cfg.Catalog.ArtifactDir,
		DatasetDir:       cfg.Catalog.DatasetDir,
		DebounceInterval: cfg.Catalog.DebounceInterval,
	},
		source.WithLogger(logger),
		source.WithMetrics(a.metrics),
		source.WithLinter(rulepack.NewLinter(sandbox.New(limits), orchestrator.BaseBindingNames)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var notifier orchestrator.Notifier
	if cfg.Evaluation.WebhookSecret != "" {
		notifier = notify.NewWebhook(notify.Config{
			Secret:  cfg.Evaluation.WebhookSecret,
			Timeout: cfg.Evaluation.WebhookTimeout,
		}, logger)
	}

	a.orchestrator = orchestrator.New(orchestrator.Config{
		Limits:       limits,
		StackTraces:  cfg.Evaluation.StackTraces,
		StoreTimeout: cfg.Evaluation.StoreTimeout,
	}, a.store, a.catalog, notifier,
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithTracer(a.tracer),
	)

	counts := a.catalog.Counts()
	logger.Info("catalog loaded",
		"rulepacks", counts.RulePacks,
		"scenarios", counts.Scenarios,
		"artifacts", counts.Artifacts,
		"datasets", counts.Datasets,
	)
	return a, nil
}

// Close flushes traces and closes the store.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func sandboxLimits(cfg config.SandboxConfig) sandbox.Limits {
	return sandbox.Limits{
		MaxLength: cfg.MaxExpressionLength,
		MaxDepth:  cfg.MaxDepth,
	}
}

// openStore opens the configured run store backend.
func openStore(cfg config.StorageConfig) (runStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
