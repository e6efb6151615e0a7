package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/swellmap/surfatlas/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock's pool
// satisfies it too, which is what the tests use.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by the serve command
// and by tests with a mock pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	idx    INTEGER NOT NULL,
	record JSONB NOT NULL,
	PRIMARY KEY (run_id, source, idx)
);

CREATE TABLE IF NOT EXISTS merged_breaks (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	pos     INTEGER NOT NULL,
	country TEXT NOT NULL,
	record  JSONB NOT NULL,
	PRIMARY KEY (run_id, pos)
);

CREATE TABLE IF NOT EXISTS unmatched_breaks (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	pos    INTEGER NOT NULL,
	reason TEXT NOT NULL,
	record JSONB NOT NULL,
	PRIMARY KEY (run_id, source, pos)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_merged_country ON merged_breaks(run_id, country);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.NewString(),
		Status:    model.RunRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats *model.MergeStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunCompleted), blob, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.RunFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, stats, created_at, updated_at FROM runs WHERE id = $1`, runID)
	return scanPgRun(row)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, stats, created_at, updated_at
		 FROM runs WHERE status = $1 ORDER BY created_at DESC LIMIT 1`,
		string(model.RunCompleted))
	return scanPgRun(row)
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var run model.Run
	var stats []byte
	err := row.Scan(&run.ID, &run.Status, &stats, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &run, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID string, source model.Source, breaks []model.Break) error {
	for i, b := range breaks {
		blob, err := json.Marshal(b)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal break")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO snapshots (run_id, source, idx, record) VALUES ($1, $2, $3, $4)`,
			runID, string(source), i, blob,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert snapshot row")
		}
	}
	return nil
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, runID string, source model.Source) ([]model.Break, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM snapshots WHERE run_id = $1 AND source = $2 ORDER BY idx`,
		runID, string(source))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load snapshot")
	}
	defer rows.Close()

	var breaks []model.Break
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		var b model.Break
		if err := json.Unmarshal(blob, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal break")
		}
		breaks = append(breaks, b)
	}
	return breaks, eris.Wrap(rows.Err(), "postgres: snapshot rows")
}

func (s *PostgresStore) SaveMerged(ctx context.Context, runID string, merged []model.MergedBreak) error {
	for i, m := range merged {
		blob, err := json.Marshal(m)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal merged")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO merged_breaks (run_id, pos, country, record) VALUES ($1, $2, $3, $4)`,
			runID, i, m.Country, blob,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert merged row")
		}
	}
	return nil
}

func (s *PostgresStore) SaveUnmatched(ctx context.Context, runID string, unmatched []model.UnmatchedBreak) error {
	for i, u := range unmatched {
		blob, err := json.Marshal(u.Break)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal unmatched")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO unmatched_breaks (run_id, source, pos, reason, record) VALUES ($1, $2, $3, $4, $5)`,
			runID, string(u.Break.Source), i, string(u.Reason), blob,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert unmatched row")
		}
	}
	return nil
}

func (s *PostgresStore) ListMerged(ctx context.Context, runID, country string) ([]model.MergedBreak, error) {
	query := `SELECT record FROM merged_breaks WHERE run_id = $1`
	args := []any{runID}
	if country != "" {
		query += ` AND country = $2`
		args = append(args, country)
	}
	query += ` ORDER BY pos`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list merged")
	}
	defer rows.Close()

	var merged []model.MergedBreak
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "postgres: scan merged row")
		}
		var m model.MergedBreak
		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal merged")
		}
		merged = append(merged, m)
	}
	return merged, eris.Wrap(rows.Err(), "postgres: merged rows")
}

func (s *PostgresStore) ListUnmatched(ctx context.Context, runID string, source model.Source) ([]model.UnmatchedBreak, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT reason, record FROM unmatched_breaks WHERE run_id = $1 AND source = $2 ORDER BY pos`,
		runID, string(source))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unmatched")
	}
	defer rows.Close()

	var unmatched []model.UnmatchedBreak
	for rows.Next() {
		var reason string
		var blob []byte
		if err := rows.Scan(&reason, &blob); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unmatched row")
		}
		var b model.Break
		if err := json.Unmarshal(blob, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal unmatched")
		}
		unmatched = append(unmatched, model.UnmatchedBreak{Break: b, Reason: model.Reason(reason)})
	}
	return unmatched, eris.Wrap(rows.Err(), "postgres: unmatched rows")
}
