// Package store persists pipeline runs: the two source snapshots and
// the three reconciliation output tables.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/swellmap/surfatlas/internal/model"
)

// Config selects and configures the persistence backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Store is the persistence interface for the catalog pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats *model.MergeStats) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)

	// Snapshots
	SaveSnapshot(ctx context.Context, runID string, source model.Source, breaks []model.Break) error
	LoadSnapshot(ctx context.Context, runID string, source model.Source) ([]model.Break, error)

	// Results
	SaveMerged(ctx context.Context, runID string, merged []model.MergedBreak) error
	SaveUnmatched(ctx context.Context, runID string, unmatched []model.UnmatchedBreak) error
	ListMerged(ctx context.Context, runID, country string) ([]model.MergedBreak, error)
	ListUnmatched(ctx context.Context, runID string, source model.Source) ([]model.UnmatchedBreak, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "surfatlas.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
