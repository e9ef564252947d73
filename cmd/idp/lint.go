package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"idp-hq/assess/pkg/cli"
	"idp-hq/assess/pkg/evaluation/orchestrator"
	"idp-hq/assess/pkg/rulepack"
	"idp-hq/assess/pkg/sandbox"
)

var lintFlags struct {
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [file|dir]...",
	Short: "Validate rule pack files",
	Long: `Validate rule pack documents (YAML or JSON).

Each file is checked for:
  - YAML/JSON syntax
  - Rule pack schema
  - Conditions the expression sandbox rejects
  - Duplicate rule IDs
  - Variables no scenario or simulation binds (warning)

With no arguments the configured catalog.rulepack_dir is linted.

Examples:
  idp lint rulepacks/core.yaml
  idp lint rulepacks/ --strict
  idp lint --format json`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the lint outcome of one file.
type LintResult struct {
	File     string            `json:"file"`
	Valid    bool              `json:"valid"`
	RulePack string            `json:"rulepack,omitempty"`
	Rules    int               `json:"rules"`
	Errors   []*rulepack.Issue `json:"errors,omitempty"`
	Warnings []*rulepack.Issue `json:"warnings,omitempty"`
	// Failure is set when the file could not be read.
	Failure string `json:"failure,omitempty"`
}

// lintReport is the output of the lint command.
type lintReport struct {
	Results []LintResult `json:"results"`
	strict  bool
}

func runLint(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	limits := sandbox.DefaultLimits()
	if len(args) == 0 || cfgFile != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		limits = sandboxLimits(cfg.Evaluation.Sandbox)
		if len(args) == 0 {
			args = []string{cfg.Catalog.RulePackDir}
		}
	}

	files, err := collectPackFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule pack files found")
	}

	linter := rulepack.NewLinter(sandbox.New(limits), orchestrator.BaseBindingNames)
	report := lintReport{strict: lintFlags.strict}
	for _, file := range files {
		report.Results = append(report.Results, lintFile(linter, file))
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if failed := report.failed(); failed > 0 {
		return fmt.Errorf("%d of %d rule pack files failed validation", failed, len(report.Results))
	}
	return nil
}

// collectPackFiles expands directories into the rule pack files they
// contain, recursively.
func collectPackFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && rulepack.IsPackFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list rule pack files: %w", err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func lintFile(linter *rulepack.Linter, path string) LintResult {
	result := LintResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Failure = err.Error()
		return result
	}

	pack, issues, err := rulepack.Load(data, rulepack.FormatFromPath(path), linter)
	if issues != nil {
		result.Errors = issues.Errors()
		result.Warnings = issues.Warnings()
	}
	if err != nil {
		var list *rulepack.IssueList
		if !errors.As(err, &list) && len(result.Errors) == 0 {
			result.Failure = err.Error()
		}
		return result
	}

	result.Valid = true
	result.RulePack = pack.ID
	result.Rules = len(pack.Rules)
	return result
}

func (r lintReport) failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Valid || (r.strict && len(res.Warnings) > 0) {
			n++
		}
	}
	return n
}

// RenderText implements cli.TextRenderer.
func (r lintReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		switch {
		case res.Failure != "":
			fmt.Fprintf(w, "✗ %s: %s\n", res.File, res.Failure)
		case !res.Valid:
			fmt.Fprintf(w, "✗ %s\n", res.File)
		default:
			fmt.Fprintf(w, "✓ %s (%d rules)\n", res.File, res.Rules)
		}
		for _, issue := range res.Errors {
			fmt.Fprintf(w, "    error:   %s\n", issue.String())
		}
		for _, issue := range res.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", issue.String())
		}
	}

	failed := r.failed()
	_, err := fmt.Fprintf(w, "\n%d files, %d passed, %d failed\n", len(r.Results), len(r.Results)-failed, failed)
	return err
}
