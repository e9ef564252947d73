package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"idp-hq/assess/pkg/cli"
	"idp-hq/assess/pkg/config"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/retention"
	"idp-hq/assess/pkg/server"
	"idp-hq/assess/pkg/telemetry/health"
	"idp-hq/assess/pkg/worker"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the assessment API server",
	Long: `Start the HTTP API with the specified configuration.

Submitted evaluations are queued on a bounded worker pool. The rule pack,
scenario, artifact and dataset directories are loaded at startup and, with
catalog.watch, reloaded when they change.

Examples:
  # Start with defaults and IDP_* environment
  idp serve

  # Start with a config file
  idp serve --config /etc/idp/idp.yaml

  # Override listen address
  idp serve --listen 0.0.0.0:8080

  # Validate config and catalog without starting the server
  idp serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and catalog without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := setupLogger(cfg.Telemetry.Logging)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("failed to close components", "error", err)
		}
	}()

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Catalog loaded (%+v)\n", a.catalog.Counts())
		return nil
	}

	if cfg.Catalog.Watch {
		go func() {
			if err := a.catalog.Watch(ctx); err != nil {
				logger.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Worker.Workers,
		QueueSize: cfg.Worker.QueueSize,
	}, a.orchestrator, worker.WithLogger(logger), worker.WithMetrics(a.metrics))

	service := evaluation.NewService(a.store, a.catalog, pool, logger)
	if n, err := service.Resume(ctx); err != nil {
		logger.Error("failed to resume unfinished runs", "error", err)
	} else if n > 0 {
		logger.Info("resumed unfinished runs", "count", n)
	}

	pruner := retention.NewPruner(a.store, &retention.Config{
		RetentionDays: cfg.Retention.Days,
		PruneSchedule: cfg.Retention.Schedule,
	})
	if err := pruner.Scheduler().Start(ctx); err != nil {
		logger.Warn("failed to start retention scheduler", "error", err)
	} else if next := pruner.Scheduler().NextRun(); next != nil {
		logger.Info("retention scheduler started", "next_run", next)
	}
	defer pruner.Scheduler().Stop()

	checker := health.New(5*time.Second, Version)
	checker.Register("store", func(ctx context.Context) error {
		_, err := a.store.List(ctx, evaluation.Filter{Limit: 1})
		return err
	})
	checker.Register("catalog", func(context.Context) error {
		return a.catalog.LastError()
	})
	checker.Register("worker", func(context.Context) error {
		stats := pool.Stats()
		if stats.QueueDepth >= int64(cfg.Worker.QueueSize) {
			return fmt.Errorf("queue full (%d runs waiting)", stats.QueueDepth)
		}
		return nil
	})

	deps := server.Dependencies{
		Evaluations: service,
		Datasets:    a.catalog,
		Health:      checker,
		Tracer:      a.tracer,
		Logger:      logger,
	}
	if cfg.Telemetry.Metrics.Enabled {
		deps.Metrics = a.metrics
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	srv := server.NewServer(&cfg.Server, deps)

	fmt.Fprintf(cmd.OutOrStdout(), "idp %s listening on %s\n", Version, cfg.Server.ListenAddress)
	serveErr := srv.Start(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := pool.Drain(drainCtx); err != nil {
		logger.Warn("worker pool did not drain before timeout", "error", err)
	}

	if serveErr != nil {
		return cli.NewCommandError("serve", serveErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}
