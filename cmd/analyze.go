package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/monitor/metrics"
	"github.com/seo-optimizer/monitor/report"
	"github.com/seo-optimizer/monitor/scan"
	"github.com/seo-optimizer/monitor/store"
)

func newAnalyzeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a URL once and print the record and insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := args[0]
			if err := store.ValidateURL(pageURL); err != nil {
				return err
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			seo, perf := newAnalyzers(cfg, log, metrics.NewNoop())
			svc := scan.New(seo, perf, nil, nil, scan.WithLogger(log))

			record, _ := svc.Analyze(cmd.Context(), pageURL)

			out, err := json.MarshalIndent(struct {
				Analysis report.Record   `json:"analysis"`
				Insights report.Insights `json:"insights"`
			}{record, report.ExtractInsights(record)}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
