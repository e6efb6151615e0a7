package main

import (
	"github.com/spf13/cobra"

	"github.com/swellmap/surfatlas/internal/pipeline"
)

var (
	scrapeDataDir     string
	scrapeSkipDetails bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the break list and per-break details",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, _, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}

		_, err = p.Run(ctx, pipeline.Options{
			DataDir:         dataDirOrDefault(scrapeDataDir),
			SkipDetails:     scrapeSkipDetails,
			SkipStandardize: true,
			SkipMerge:       true,
		})
		return err
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeDataDir, "data-dir", "", "stage file directory (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeSkipDetails, "skip-details", false, "skip scraping break details")
	rootCmd.AddCommand(scrapeCmd)
}
