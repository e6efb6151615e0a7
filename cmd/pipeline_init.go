package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/swellmap/surfatlas/internal/country"
	"github.com/swellmap/surfatlas/internal/pipeline"
	"github.com/swellmap/surfatlas/internal/reconcile"
	"github.com/swellmap/surfatlas/internal/scrape"
	"github.com/swellmap/surfatlas/internal/store"
)

// initStore opens and migrates the configured backend.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline assembles the full pipeline from config. The returned
// store is nil when noStore is set; the caller owns closing it.
func initPipeline(ctx context.Context, noStore bool) (*pipeline.Pipeline, store.Store, error) {
	std, err := country.NewStandardizer(cfg.Country)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Match.Validate(); err != nil {
		return nil, nil, err
	}

	var st store.Store
	if !noStore {
		st, err = initStore(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	p := pipeline.New(
		scrape.NewClient(cfg.Scrape),
		std,
		reconcile.NewResolver(cfg.Match),
		st,
	)
	return p, st, nil
}
