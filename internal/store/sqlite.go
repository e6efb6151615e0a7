package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/swellmap/surfatlas/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	idx    INTEGER NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (run_id, source, idx)
);

CREATE TABLE IF NOT EXISTS merged_breaks (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	pos     INTEGER NOT NULL,
	country TEXT NOT NULL,
	record  TEXT NOT NULL,
	PRIMARY KEY (run_id, pos)
);

CREATE TABLE IF NOT EXISTS unmatched_breaks (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	pos    INTEGER NOT NULL,
	reason TEXT NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (run_id, source, pos)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_merged_country ON merged_breaks(run_id, country);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.NewString(),
		Status:    model.RunRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats *model.MergeStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, updated_at = ? WHERE id = ?`,
		model.RunCompleted, string(blob), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: complete run")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		model.RunFailed, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: fail run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, stats, created_at, updated_at FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, stats, created_at, updated_at
		 FROM runs WHERE status = ? ORDER BY created_at DESC LIMIT 1`,
		model.RunCompleted)
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var stats sql.NullString
	err := row.Scan(&run.ID, &run.Status, &stats, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	if stats.Valid && stats.String != "" {
		if err := json.Unmarshal([]byte(stats.String), &run.Stats); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal stats")
		}
	}
	return &run, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, source model.Source, breaks []model.Break) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin snapshot tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshots (run_id, source, idx, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare snapshot insert")
	}
	defer stmt.Close()

	for i, b := range breaks {
		blob, err := json.Marshal(b)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal break")
		}
		if _, err := stmt.ExecContext(ctx, runID, source, i, string(blob)); err != nil {
			return eris.Wrap(err, "sqlite: insert snapshot row")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit snapshot")
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, runID string, source model.Source) ([]model.Break, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM snapshots WHERE run_id = ? AND source = ? ORDER BY idx`,
		runID, source)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load snapshot")
	}
	defer rows.Close()

	var breaks []model.Break
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		var b model.Break
		if err := json.Unmarshal([]byte(blob), &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal break")
		}
		breaks = append(breaks, b)
	}
	return breaks, eris.Wrap(rows.Err(), "sqlite: snapshot rows")
}

func (s *SQLiteStore) SaveMerged(ctx context.Context, runID string, merged []model.MergedBreak) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin merged tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO merged_breaks (run_id, pos, country, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare merged insert")
	}
	defer stmt.Close()

	for i, m := range merged {
		blob, err := json.Marshal(m)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal merged")
		}
		if _, err := stmt.ExecContext(ctx, runID, i, m.Country, string(blob)); err != nil {
			return eris.Wrap(err, "sqlite: insert merged row")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit merged")
}

func (s *SQLiteStore) SaveUnmatched(ctx context.Context, runID string, unmatched []model.UnmatchedBreak) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin unmatched tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unmatched_breaks (run_id, source, pos, reason, record) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare unmatched insert")
	}
	defer stmt.Close()

	for i, u := range unmatched {
		blob, err := json.Marshal(u.Break)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal unmatched")
		}
		if _, err := stmt.ExecContext(ctx, runID, u.Break.Source, i, u.Reason, string(blob)); err != nil {
			return eris.Wrap(err, "sqlite: insert unmatched row")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit unmatched")
}

func (s *SQLiteStore) ListMerged(ctx context.Context, runID, country string) ([]model.MergedBreak, error) {
	query := `SELECT record FROM merged_breaks WHERE run_id = ?`
	args := []any{runID}
	if country != "" {
		query += ` AND country = ?`
		args = append(args, country)
	}
	query += ` ORDER BY pos`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list merged")
	}
	defer rows.Close()

	var merged []model.MergedBreak
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan merged row")
		}
		var m model.MergedBreak
		if err := json.Unmarshal([]byte(blob), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal merged")
		}
		merged = append(merged, m)
	}
	return merged, eris.Wrap(rows.Err(), "sqlite: merged rows")
}

func (s *SQLiteStore) ListUnmatched(ctx context.Context, runID string, source model.Source) ([]model.UnmatchedBreak, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason, record FROM unmatched_breaks WHERE run_id = ? AND source = ? ORDER BY pos`,
		runID, source)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unmatched")
	}
	defer rows.Close()

	var unmatched []model.UnmatchedBreak
	for rows.Next() {
		var reason, blob string
		if err := rows.Scan(&reason, &blob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unmatched row")
		}
		var b model.Break
		if err := json.Unmarshal([]byte(blob), &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal unmatched")
		}
		unmatched = append(unmatched, model.UnmatchedBreak{Break: b, Reason: model.Reason(reason)})
	}
	return unmatched, eris.Wrap(rows.Err(), "sqlite: unmatched rows")
}
