package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idp-hq/assess/pkg/evaluation"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days a terminal run is kept after it
	// completed. 0 keeps runs forever.
	RetentionDays int

	// PruneSchedule is a standard five-field cron expression.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces the retention period on a run store.
type Pruner struct {
	store     evaluation.Store
	config    *Config
	logger    *slog.Logger
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a pruner. A nil config uses DefaultConfig.
func NewPruner(store evaluation.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "evaluation.retention"),
		now:    time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Scheduler returns the pruner's cron scheduler.
func (p *Pruner) Scheduler() *Scheduler {
	return p.scheduler
}

// Cutoff returns the completion time before which terminal runs are
// deleted, or the zero time when retention is disabled.
func (p *Pruner) Cutoff() time.Time {
	if p.config.RetentionDays <= 0 {
		return time.Time{}
	}
	return p.now().UTC().AddDate(0, 0, -p.config.RetentionDays)
}

// Prune deletes terminal runs completed before Cutoff and returns how many
// were deleted.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	cutoff := p.Cutoff()
	if cutoff.IsZero() {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}

	p.logger.Debug("pruning runs",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs completed before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if deleted > 0 {
		p.logger.Info("pruned runs",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}
	return deleted, nil
}
