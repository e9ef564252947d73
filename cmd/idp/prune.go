package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idp-hq/assess/pkg/cli"
	"idp-hq/assess/pkg/evaluation/retention"
)

var pruneFlags struct {
	days int
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished runs past the retention period",
	Long: `Delete done and error runs that completed more than retention.days
ago. Queued and running runs are never deleted.

Examples:
  idp prune
  idp prune --days 30`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "override retention.days")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pruneFlags.days > 0 {
		cfg.Retention.Days = pruneFlags.days
	}
	if _, err := setupLogger(cfg.Telemetry.Logging); err != nil {
		return err
	}
	if cfg.Retention.Days <= 0 {
		return cli.NewConfigError("retention.days", "retention is disabled; set retention.days or --days")
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer store.Close()

	pruner := retention.NewPruner(store, &retention.Config{RetentionDays: cfg.Retention.Days})
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d runs completed before %s\n",
		deleted, pruner.Cutoff().Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
