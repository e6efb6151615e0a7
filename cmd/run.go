package main

import (
	"github.com/spf13/cobra"

	"github.com/swellmap/surfatlas/internal/pipeline"
)

var (
	runSkipBreaks      bool
	runSkipDetails     bool
	runSkipStandardize bool
	runSkipMerge       bool
	runSecondSource    string
	runDataDir         string
	runWorkbook        bool
	runNoStore         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape, standardize, merge",
	Long: `Runs every pipeline stage in sequence. Each stage writes its output
CSV to the data directory, and skipped stages read their input from the
previous stage's file instead.

Examples:
  # Full pipeline against a second source
  surfatlas run --second-source wannasurf.csv

  # Re-merge from existing standardized files
  surfatlas run --skip-breaks --skip-details --second-source wannasurf.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx, runNoStore)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		result, err := p.Run(ctx, pipeline.Options{
			DataDir:         dataDirOrDefault(runDataDir),
			SecondSource:    secondSourceOrDefault(runSecondSource),
			SkipBreaks:      runSkipBreaks,
			SkipDetails:     runSkipDetails,
			SkipStandardize: runSkipStandardize,
			SkipMerge:       runSkipMerge,
			Workbook:        runWorkbook,
		})
		if err != nil {
			return err
		}
		if result != nil {
			printStats(cmd, result.Stats)
		}
		return nil
	},
}

func dataDirOrDefault(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Pipeline.DataDir
}

func secondSourceOrDefault(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Pipeline.SecondSource
}

func init() {
	runCmd.Flags().BoolVar(&runSkipBreaks, "skip-breaks", false, "skip scraping the break list")
	runCmd.Flags().BoolVar(&runSkipDetails, "skip-details", false, "skip scraping break details")
	runCmd.Flags().BoolVar(&runSkipStandardize, "skip-standardize", false, "skip country standardization")
	runCmd.Flags().BoolVar(&runSkipMerge, "skip-merge", false, "skip merging datasets")
	runCmd.Flags().StringVar(&runSecondSource, "second-source", "", "path to the second source CSV")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "stage file directory (default from config)")
	runCmd.Flags().BoolVar(&runWorkbook, "xlsx", false, "also write an XLSX workbook of the merge result")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "do not persist the run to the database")
	rootCmd.AddCommand(runCmd)
}
