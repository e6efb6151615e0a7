package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/swellmap/surfatlas/internal/country"
	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/reconcile"
	"github.com/swellmap/surfatlas/internal/store"
)

// Stage output files under the data directory.
const (
	BreaksListFile            = "surf_breaks_list.csv"
	BreaksCompleteFile        = "surf_breaks_complete.csv"
	BreaksStandardizedFile    = "surf_breaks_standardized.csv"
	SecondaryStandardizedFile = "secondary_standardized.csv"
	MergedFile                = "merged_surf_breaks.csv"
	PrimaryUnmatchedFile      = "primary_unmatched.csv"
	SecondaryUnmatchedFile    = "secondary_unmatched.csv"
	WorkbookFile              = "merged_surf_breaks.xlsx"
)

// Scraper is the break-list and detail acquisition surface. Satisfied
// by scrape.Client; tests substitute a stub.
type Scraper interface {
	BreakList(ctx context.Context) ([]model.Break, error)
	Details(ctx context.Context, breaks []model.Break) error
}

// Options selects which stages run and where their files live. Each
// skipped stage reads its input from the previous stage's CSV instead.
type Options struct {
	DataDir         string
	SecondSource    string
	SkipBreaks      bool
	SkipDetails     bool
	SkipStandardize bool
	SkipMerge       bool
	Workbook        bool
}

// Pipeline runs the acquisition and reconciliation stages in sequence.
type Pipeline struct {
	scraper      Scraper
	standardizer *country.Standardizer
	resolver     *reconcile.Resolver
	store        store.Store
}

// New assembles a pipeline. The store may be nil; results are then
// written to CSV only.
func New(scraper Scraper, std *country.Standardizer, resolver *reconcile.Resolver, st store.Store) *Pipeline {
	return &Pipeline{
		scraper:      scraper,
		standardizer: std,
		resolver:     resolver,
		store:        st,
	}
}

// Run executes the enabled stages. It returns the reconciliation result
// when the merge stage ran, nil otherwise.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*reconcile.Result, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "pipeline: create data dir")
	}

	primary, err := p.acquire(ctx, opts)
	if err != nil {
		return nil, err
	}

	var secondary []model.Break
	if !opts.SkipStandardize {
		primary, secondary, err = p.standardize(opts, primary)
		if err != nil {
			return nil, err
		}
	} else {
		zap.L().Info("pipeline: skipping country standardization")
		primary, secondary, err = p.loadStandardized(opts, primary)
		if err != nil {
			return nil, err
		}
	}

	if opts.SkipMerge {
		zap.L().Info("pipeline: skipping merge")
		return nil, nil
	}
	return p.merge(ctx, opts, primary, secondary)
}

// acquire runs the two scrape stages, falling back to the stage CSVs
// when a stage is skipped.
func (p *Pipeline) acquire(ctx context.Context, opts Options) ([]model.Break, error) {
	listPath := filepath.Join(opts.DataDir, BreaksListFile)
	completePath := filepath.Join(opts.DataDir, BreaksCompleteFile)

	var breaks []model.Break
	var err error

	if opts.SkipBreaks {
		zap.L().Info("pipeline: skipping break list scrape")
	} else {
		breaks, err = p.scraper.BreakList(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: scrape break list")
		}
		if err := WriteBreaksCSV(listPath, breaks); err != nil {
			return nil, err
		}
		zap.L().Info("pipeline: break list scraped",
			zap.Int("breaks", len(breaks)),
			zap.String("file", listPath))
	}

	if opts.SkipDetails {
		zap.L().Info("pipeline: skipping detail scrape")
		// Prefer the richer file when present.
		if _, statErr := os.Stat(completePath); statErr == nil {
			return ReadBreaksCSV(completePath, model.SourcePrimary)
		}
		if breaks == nil {
			return ReadBreaksCSV(listPath, model.SourcePrimary)
		}
		return breaks, nil
	}

	if breaks == nil {
		breaks, err = ReadBreaksCSV(listPath, model.SourcePrimary)
		if err != nil {
			return nil, err
		}
	}
	if err := p.scraper.Details(ctx, breaks); err != nil {
		return nil, eris.Wrap(err, "pipeline: scrape details")
	}
	if err := WriteBreaksCSV(completePath, breaks); err != nil {
		return nil, err
	}
	zap.L().Info("pipeline: details scraped",
		zap.Int("breaks", len(breaks)),
		zap.String("file", completePath))
	return breaks, nil
}

// standardize resolves country names on the primary set and, when a
// second source is configured, on the secondary set too.
func (p *Pipeline) standardize(opts Options, primary []model.Break) ([]model.Break, []model.Break, error) {
	var err error
	if primary == nil {
		completePath := filepath.Join(opts.DataDir, BreaksCompleteFile)
		primary, err = ReadBreaksCSV(completePath, model.SourcePrimary)
		if err != nil {
			return nil, nil, err
		}
	}
	for i := range primary {
		p.standardizer.Apply(&primary[i])
	}
	stdPath := filepath.Join(opts.DataDir, BreaksStandardizedFile)
	if err := WriteBreaksCSV(stdPath, primary); err != nil {
		return nil, nil, err
	}
	zap.L().Info("pipeline: primary source standardized",
		zap.Int("breaks", len(primary)), zap.String("file", stdPath))

	var secondary []model.Break
	if opts.SecondSource != "" {
		secondary, err = ReadBreaksCSV(opts.SecondSource, model.SourceSecondary)
		if err != nil {
			return nil, nil, err
		}
		for i := range secondary {
			p.standardizer.Apply(&secondary[i])
		}
		secPath := filepath.Join(opts.DataDir, SecondaryStandardizedFile)
		if err := WriteBreaksCSV(secPath, secondary); err != nil {
			return nil, nil, err
		}
		zap.L().Info("pipeline: secondary source standardized",
			zap.Int("breaks", len(secondary)), zap.String("file", secPath))
	}
	return primary, secondary, nil
}

// loadStandardized reads the standardize stage's output files when that
// stage is skipped, so the merge still sees both sources. The stage
// files are preferred; an absent primary file falls back to the rows
// the earlier stages produced, an absent secondary file falls back to
// the configured second-source path.
func (p *Pipeline) loadStandardized(opts Options, primary []model.Break) ([]model.Break, []model.Break, error) {
	stdPath := filepath.Join(opts.DataDir, BreaksStandardizedFile)
	if _, err := os.Stat(stdPath); err == nil {
		primary, err = ReadBreaksCSV(stdPath, model.SourcePrimary)
		if err != nil {
			return nil, nil, err
		}
	}

	if opts.SecondSource == "" {
		return primary, nil, nil
	}
	secPath := filepath.Join(opts.DataDir, SecondaryStandardizedFile)
	if _, err := os.Stat(secPath); err != nil {
		secPath = opts.SecondSource
	}
	secondary, err := ReadBreaksCSV(secPath, model.SourceSecondary)
	if err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}

// merge reconciles the two sources, writes the three output tables, and
// persists the run when a store is configured.
func (p *Pipeline) merge(ctx context.Context, opts Options, primary, secondary []model.Break) (*reconcile.Result, error) {
	if secondary == nil {
		zap.L().Info("pipeline: no second source, merge is a passthrough")
		mergedPath := filepath.Join(opts.DataDir, MergedFile)
		if err := WriteBreaksCSV(mergedPath, primary); err != nil {
			return nil, err
		}
		return nil, nil
	}

	result := p.resolver.Reconcile(primary, secondary)

	if err := WriteMergedCSV(filepath.Join(opts.DataDir, MergedFile), result.Merged); err != nil {
		return nil, err
	}
	if err := WriteUnmatchedCSV(filepath.Join(opts.DataDir, PrimaryUnmatchedFile), result.PrimaryUnmatched); err != nil {
		return nil, err
	}
	if err := WriteUnmatchedCSV(filepath.Join(opts.DataDir, SecondaryUnmatchedFile), result.SecondaryUnmatched); err != nil {
		return nil, err
	}
	if opts.Workbook {
		if err := WriteWorkbook(filepath.Join(opts.DataDir, WorkbookFile), &result); err != nil {
			return nil, err
		}
	}

	if p.store != nil {
		if err := p.persist(ctx, primary, secondary, &result); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// persist records the run, both input snapshots, and the three output
// tables. A failure after run creation marks the run failed.
func (p *Pipeline) persist(ctx context.Context, primary, secondary []model.Break, result *reconcile.Result) error {
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return err
	}

	save := func() error {
		if err := p.store.SaveSnapshot(ctx, run.ID, model.SourcePrimary, primary); err != nil {
			return err
		}
		if err := p.store.SaveSnapshot(ctx, run.ID, model.SourceSecondary, secondary); err != nil {
			return err
		}
		if err := p.store.SaveMerged(ctx, run.ID, result.Merged); err != nil {
			return err
		}
		unmatched := append(append([]model.UnmatchedBreak{}, result.PrimaryUnmatched...), result.SecondaryUnmatched...)
		return p.store.SaveUnmatched(ctx, run.ID, unmatched)
	}

	if err := save(); err != nil {
		if failErr := p.store.FailRun(ctx, run.ID); failErr != nil {
			zap.L().Warn("pipeline: mark run failed", zap.Error(failErr))
		}
		return err
	}
	if err := p.store.CompleteRun(ctx, run.ID, &result.Stats); err != nil {
		return err
	}
	zap.L().Info("pipeline: run persisted", zap.String("run_id", run.ID))
	return nil
}
