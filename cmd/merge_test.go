package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/pipeline"
	"github.com/swellmap/surfatlas/internal/reconcile"
)

func TestWriteMergeOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	result := &reconcile.Result{
		Merged: []model.MergedBreak{
			{Name: "Uluwatu", Country: "Indonesia", Score: 0.95},
		},
		SecondaryUnmatched: []model.UnmatchedBreak{
			{Break: model.Break{Name: "Nowhere", CountryRaw: "Atlantis"}, Reason: model.ReasonUnresolvedCountry},
		},
	}
	require.NoError(t, writeMergeOutputs(dir, result, true))

	for _, name := range []string{
		pipeline.MergedFile, pipeline.PrimaryUnmatchedFile,
		pipeline.SecondaryUnmatchedFile, pipeline.WorkbookFile,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestPersistMerge(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	primary := []model.Break{{Name: "Uluwatu", CountryRaw: "Indonesia", CountryStd: "Indonesia", Source: model.SourcePrimary}}
	secondary := []model.Break{{Name: "Uluwatu", CountryRaw: "Indonesia", CountryStd: "Indonesia", Source: model.SourceSecondary}}
	result := &reconcile.Result{
		Merged: []model.MergedBreak{{Name: "Uluwatu", Country: "Indonesia", Score: 0.95}},
		Stats:  model.MergeStats{PrimaryTotal: 1, SecondaryTotal: 1, Merged: 1},
	}

	require.NoError(t, persistMerge(ctx, st, primary, secondary, result))

	run, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunCompleted, run.Status)

	snap, err := st.LoadSnapshot(ctx, run.ID, model.SourcePrimary)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "Uluwatu", snap[0].Name)

	merged, err := st.ListMerged(ctx, run.ID, "")
	require.NoError(t, err)
	assert.Len(t, merged, 1)
}
