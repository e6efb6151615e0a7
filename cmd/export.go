package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/pipeline"
	"github.com/swellmap/surfatlas/internal/reconcile"
)

var (
	exportRunID   string
	exportDataDir string
	exportFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run's results to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if exportFormat != "csv" && exportFormat != "xlsx" {
			return eris.Errorf("export: unknown format %q", exportFormat)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var run *model.Run
		if exportRunID != "" {
			run, err = st.GetRun(ctx, exportRunID)
		} else {
			run, err = st.LatestRun(ctx)
		}
		if err != nil {
			return err
		}
		if run == nil {
			return eris.New("export: no completed run found")
		}

		result := reconcile.Result{}
		if result.Merged, err = st.ListMerged(ctx, run.ID, ""); err != nil {
			return err
		}
		if result.PrimaryUnmatched, err = st.ListUnmatched(ctx, run.ID, model.SourcePrimary); err != nil {
			return err
		}
		if result.SecondaryUnmatched, err = st.ListUnmatched(ctx, run.ID, model.SourceSecondary); err != nil {
			return err
		}

		dataDir := dataDirOrDefault(exportDataDir)
		if exportFormat == "xlsx" {
			path := filepath.Join(dataDir, pipeline.WorkbookFile)
			if err := pipeline.WriteWorkbook(path, &result); err != nil {
				return err
			}
			zap.L().Info("export complete", zap.String("run_id", run.ID), zap.String("file", path))
			return nil
		}

		if err := writeMergeOutputs(dataDir, &result, false); err != nil {
			return err
		}
		zap.L().Info("export complete", zap.String("run_id", run.ID), zap.String("dir", dataDir))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (default latest completed)")
	exportCmd.Flags().StringVar(&exportDataDir, "data-dir", "", "output directory (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(exportCmd)
}
