package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swellmap/surfatlas/internal/country"
	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/pipeline"
)

var (
	standardizeIn  string
	standardizeOut string
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Standardize country names in a breaks CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if standardizeIn == "" {
			return eris.New("standardize: --in is required")
		}
		if standardizeOut == "" {
			return eris.New("standardize: --out is required")
		}

		std, err := country.NewStandardizer(cfg.Country)
		if err != nil {
			return err
		}

		breaks, err := pipeline.ReadBreaksCSV(standardizeIn, model.SourcePrimary)
		if err != nil {
			return err
		}

		var unresolved int
		for i := range breaks {
			std.Apply(&breaks[i])
			if breaks[i].CountryConfidence == model.ConfidenceUnresolved {
				unresolved++
			}
		}
		if err := pipeline.WriteBreaksCSV(standardizeOut, breaks); err != nil {
			return err
		}

		zap.L().Info("standardization complete",
			zap.Int("breaks", len(breaks)),
			zap.Int("unresolved", unresolved),
			zap.String("file", standardizeOut))
		return nil
	},
}

func init() {
	standardizeCmd.Flags().StringVar(&standardizeIn, "in", "", "input breaks CSV")
	standardizeCmd.Flags().StringVar(&standardizeOut, "out", "", "output CSV with country_std and country_confidence columns")
	rootCmd.AddCommand(standardizeCmd)
}
