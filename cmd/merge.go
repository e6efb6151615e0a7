package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/pipeline"
	"github.com/swellmap/surfatlas/internal/reconcile"
	"github.com/swellmap/surfatlas/internal/store"
)

var (
	mergePrimary   string
	mergeSecondary string
	mergeDataDir   string
	mergeWorkbook  bool
	mergeNoStore   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Reconcile two standardized breaks CSVs",
	Long: `Reads two standardized source CSVs, matches records within each
country by name and region similarity, and writes the merged table plus
the two unmatched tables to the data directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if mergePrimary == "" || mergeSecondary == "" {
			return eris.New("merge: --primary and --secondary are required")
		}
		if err := cfg.Match.Validate(); err != nil {
			return err
		}

		primary, err := pipeline.ReadBreaksCSV(mergePrimary, model.SourcePrimary)
		if err != nil {
			return err
		}
		secondary, err := pipeline.ReadBreaksCSV(mergeSecondary, model.SourceSecondary)
		if err != nil {
			return err
		}

		resolver := reconcile.NewResolver(cfg.Match)
		result := resolver.Reconcile(primary, secondary)

		dataDir := dataDirOrDefault(mergeDataDir)
		if err := writeMergeOutputs(dataDir, &result, mergeWorkbook); err != nil {
			return err
		}

		if !mergeNoStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := persistMerge(ctx, st, primary, secondary, &result); err != nil {
				return err
			}
		}

		printStats(cmd, result.Stats)
		return nil
	},
}

func writeMergeOutputs(dataDir string, result *reconcile.Result, workbook bool) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return eris.Wrap(err, "merge: create data dir")
	}
	if err := pipeline.WriteMergedCSV(filepath.Join(dataDir, pipeline.MergedFile), result.Merged); err != nil {
		return err
	}
	if err := pipeline.WriteUnmatchedCSV(filepath.Join(dataDir, pipeline.PrimaryUnmatchedFile), result.PrimaryUnmatched); err != nil {
		return err
	}
	if err := pipeline.WriteUnmatchedCSV(filepath.Join(dataDir, pipeline.SecondaryUnmatchedFile), result.SecondaryUnmatched); err != nil {
		return err
	}
	if workbook {
		return pipeline.WriteWorkbook(filepath.Join(dataDir, pipeline.WorkbookFile), result)
	}
	return nil
}

func persistMerge(ctx context.Context, st store.Store, primary, secondary []model.Break, result *reconcile.Result) error {
	run, err := st.CreateRun(ctx)
	if err != nil {
		return err
	}
	if err := st.SaveSnapshot(ctx, run.ID, model.SourcePrimary, primary); err != nil {
		return err
	}
	if err := st.SaveSnapshot(ctx, run.ID, model.SourceSecondary, secondary); err != nil {
		return err
	}
	if err := st.SaveMerged(ctx, run.ID, result.Merged); err != nil {
		return err
	}
	unmatched := append(append([]model.UnmatchedBreak{}, result.PrimaryUnmatched...), result.SecondaryUnmatched...)
	if err := st.SaveUnmatched(ctx, run.ID, unmatched); err != nil {
		return err
	}
	return st.CompleteRun(ctx, run.ID, &result.Stats)
}

// printStats writes the merge summary to the command's stdout, matching
// the run log but readable without a JSON log pipeline.
func printStats(cmd *cobra.Command, stats model.MergeStats) {
	cmd.Printf("Merge statistics:\n")
	cmd.Printf("  primary records:     %d\n", stats.PrimaryTotal)
	cmd.Printf("  secondary records:   %d\n", stats.SecondaryTotal)
	cmd.Printf("  merged:              %d\n", stats.Merged)
	cmd.Printf("  primary unmatched:   %d\n", stats.PrimaryUnmatched)
	cmd.Printf("  secondary unmatched: %d\n", stats.SecondaryUnmatched)
	cmd.Printf("  unresolved country:  %d\n", stats.UnresolvedCountry)
	cmd.Printf("  incomplete:          %d\n", stats.Incomplete)
}

func init() {
	mergeCmd.Flags().StringVar(&mergePrimary, "primary", "", "standardized primary source CSV")
	mergeCmd.Flags().StringVar(&mergeSecondary, "secondary", "", "standardized secondary source CSV")
	mergeCmd.Flags().StringVar(&mergeDataDir, "data-dir", "", "output directory (default from config)")
	mergeCmd.Flags().BoolVar(&mergeWorkbook, "xlsx", false, "also write an XLSX workbook")
	mergeCmd.Flags().BoolVar(&mergeNoStore, "no-store", false, "do not persist the run to the database")
	rootCmd.AddCommand(mergeCmd)
}
