package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"idp-hq/assess/pkg/cli"
	"idp-hq/assess/pkg/config"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/orchestrator"
)

var evaluateFlags struct {
	artifact string
	scenario string
	rulepack string
	debug    bool
	persist  bool
	format   string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one artifact and print the result",
	Long: `Evaluate an artifact against a rule pack under a scenario without
starting the server. Documents are read from the configured catalog
directories.

The run is kept in memory unless --persist is given, in which case it is
written to the configured store.

Examples:
  idp evaluate --artifact panel --scenario kiosk --rulepack core
  idp evaluate -a panel -s kiosk -r core --debug --format json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.artifact, "artifact", "a", "", "artifact ID (required)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.scenario, "scenario", "s", "", "scenario ID (required)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.rulepack, "rulepack", "r", "", "rule pack ID (required)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.debug, "debug", false, "record a rule trace")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.persist, "persist", false, "write the run to the configured store")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	_ = evaluateCmd.MarkFlagRequired("artifact")
	_ = evaluateCmd.MarkFlagRequired("scenario")
	_ = evaluateCmd.MarkFlagRequired("rulepack")
}

// inlineDispatcher executes a run before Dispatch returns.
type inlineDispatcher struct {
	exec   *orchestrator.Orchestrator
	report orchestrator.Report
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, runID string) error {
	d.report = d.exec.Execute(ctx, runID)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !evaluateFlags.persist {
		cfg.Storage.Backend = config.BackendMemory
	}
	cfg.Evaluation.WebhookSecret = ""

	logger, err := setupLogger(cfg.Telemetry.Logging)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer a.Close(context.Background())

	dispatcher := &inlineDispatcher{exec: a.orchestrator}
	service := evaluation.NewService(a.store, a.catalog, dispatcher, logger)

	ctx := cmd.Context()
	submitted, err := service.Submit(ctx, evaluation.Submission{
		ArtifactID: evaluateFlags.artifact,
		ScenarioID: evaluateFlags.scenario,
		RulePackID: evaluateFlags.rulepack,
		Debug:      evaluateFlags.debug,
	})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	view, err := service.Get(ctx, submitted.ID)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), evaluationOutput{view}); err != nil {
		return err
	}
	if view.Status != evaluation.StatusDone {
		return cli.NewCommandError("evaluate", fmt.Errorf("run %s ended with status %s", view.ID, view.Status))
	}
	return nil
}

// evaluationOutput renders a run view for the terminal.
type evaluationOutput struct {
	*evaluation.View
}

// RenderText implements cli.TextRenderer.
func (o evaluationOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Run:    %s\n", o.ID)
	fmt.Fprintf(w, "Status: %s\n", o.Status)

	if msg, ok := o.Metrics["error"]; ok {
		fmt.Fprintf(w, "Error:  %v\n", msg)
	}
	if o.InclusivityIndex != nil {
		fmt.Fprintf(w, "Inclusivity index: %.2f\n", o.InclusivityIndex.Score)
	}
	if o.Delta != nil {
		fmt.Fprintf(w, "Delta vs previous run: %+.2f\n", *o.Delta)
	}
	if o.Results == nil {
		return nil
	}

	fmt.Fprintln(w, "\nRules:")
	for _, r := range o.Results.Rules {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %-24s %s\n", mark, r.ID, r.Severity)
		if r.Details.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", r.Details.Error)
		}
		if !r.Passed && r.Remediation != nil {
			fmt.Fprintf(w, "      fix: %s\n", *r.Remediation)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
