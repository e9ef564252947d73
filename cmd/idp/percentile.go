package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"idp-hq/assess/pkg/anthro"
	"idp-hq/assess/pkg/cli"
)

var percentileFlags struct {
	dir        string
	metric     string
	percentile float64
	region     string
	sex        string
	age        string
	format     string
}

var percentileCmd = &cobra.Command{
	Use:   "percentile DATASET",
	Short: "Look up an anthropometric percentile",
	Long: `Look up the value of a metric at a percentile in an anthropometric
dataset. The most specific segment matching the region, sex and age
filters is used; values between p5, p50 and p95 are interpolated.

Datasets are read from --dir, or catalog.dataset_dir when it is not given.

Examples:
  idp percentile ansur --metric stature --percentile 95
  idp percentile ansur --metric grip_strength --percentile 5 --sex F --region NA`,
	Args: cobra.ExactArgs(1),
	RunE: runPercentile,
}

func init() {
	rootCmd.AddCommand(percentileCmd)

	percentileCmd.Flags().StringVar(&percentileFlags.dir, "dir", "", "dataset directory")
	percentileCmd.Flags().StringVarP(&percentileFlags.metric, "metric", "m", "", "metric name (required)")
	percentileCmd.Flags().Float64VarP(&percentileFlags.percentile, "percentile", "p", 50, "percentile, 0 to 100")
	percentileCmd.Flags().StringVar(&percentileFlags.region, "region", "", "region filter")
	percentileCmd.Flags().StringVar(&percentileFlags.sex, "sex", "", "sex filter")
	percentileCmd.Flags().StringVar(&percentileFlags.age, "age", "", "age band filter")
	percentileCmd.Flags().StringVar(&percentileFlags.format, "format", "text", "output format: text, json")
	_ = percentileCmd.MarkFlagRequired("metric")
}

// percentileResult is the output of the percentile command.
type percentileResult struct {
	Dataset    string  `json:"dataset"`
	Metric     string  `json:"metric"`
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// RenderText implements cli.TextRenderer.
func (r percentileResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s p%g %s = %.2f\n", r.Dataset, r.Percentile, r.Metric, r.Value)
	return err
}

func runPercentile(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(percentileFlags.format)
	if err != nil {
		return err
	}
	if p := percentileFlags.percentile; p < 0 || p > 100 {
		return cli.NewConfigError("percentile", fmt.Sprintf("%v is outside [0, 100]", p))
	}

	dir := percentileFlags.dir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir = cfg.Catalog.DatasetDir
	}

	catalog, err := anthro.LoadDir(dir)
	if err != nil {
		return cli.NewCommandError("percentile", err)
	}
	ds, err := catalog.Dataset(context.Background(), args[0])
	if err != nil {
		return cli.NewCommandError("percentile", err)
	}

	query := anthro.Query{
		Metric:     percentileFlags.metric,
		Percentile: percentileFlags.percentile,
		Region:     percentileFlags.region,
		Sex:        percentileFlags.sex,
		Age:        percentileFlags.age,
	}
	value, err := ds.Query(query)
	if err != nil {
		return cli.NewCommandError("percentile", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), percentileResult{
		Dataset:    ds.ID,
		Metric:     query.Metric,
		Percentile: query.Percentile,
		Value:      value,
	})
}
