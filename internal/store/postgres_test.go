package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/surfatlas/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), string(model.RunRunning), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(string(model.RunCompleted), pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", &model.MergeStats{Merged: 3})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(string(model.RunCompleted), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", &model.MergeStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stats, err := json.Marshal(&model.MergeStats{Merged: 5})
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, status, stats, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "stats", "created_at", "updated_at"}).
			AddRow("run-1", "completed", stats, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunCompleted, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 5, run.Stats.Merged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, stats, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	run, err := s.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	breaks := []model.Break{
		{Name: "Uluwatu", CountryRaw: "Indonesia", Source: model.SourcePrimary},
		{Name: "Mundaka", CountryRaw: "Spain", Source: model.SourcePrimary, Index: 1},
	}
	for range breaks {
		mock.ExpectExec(`INSERT INTO snapshots`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	err := s.SaveSnapshot(context.Background(), "run-1", model.SourcePrimary, breaks)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListMerged_CountryFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	record, err := json.Marshal(model.MergedBreak{Name: "Mundaka", Country: "Spain", Score: 0.9})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM merged_breaks WHERE run_id = \$1 AND country = \$2`).
		WithArgs("run-1", "Spain").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(record))

	merged, err := s.ListMerged(context.Background(), "run-1", "Spain")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "Mundaka", merged[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListUnmatched(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	record, err := json.Marshal(model.Break{Name: "Secret Spot", CountryRaw: "Bali", Source: model.SourceSecondary})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT reason, record FROM unmatched_breaks`).
		WithArgs("run-1", string(model.SourceSecondary)).
		WillReturnRows(pgxmock.NewRows([]string{"reason", "record"}).
			AddRow(string(model.ReasonUnresolvedCountry), record))

	unmatched, err := s.ListUnmatched(context.Background(), "run-1", model.SourceSecondary)
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, model.ReasonUnresolvedCountry, unmatched[0].Reason)
	assert.Equal(t, "Secret Spot", unmatched[0].Break.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
