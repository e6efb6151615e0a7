package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/store"
)

func newServeTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedRun(t *testing.T, st *store.SQLiteStore) *model.Run {
	t.Helper()
	ctx := context.Background()
	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	merged := []model.MergedBreak{
		{Name: "Uluwatu", Country: "Indonesia", Score: 0.95},
		{Name: "Mundaka", Country: "Spain", Score: 0.88},
	}
	require.NoError(t, st.SaveMerged(ctx, run.ID, merged))
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.MergeStats{
		PrimaryTotal: 2, SecondaryTotal: 2, Merged: 2,
	}))
	return run
}

func TestRouter_Healthz(t *testing.T) {
	router := newRouter(newServeTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Breaks_NoRun(t *testing.T) {
	router := newRouter(newServeTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/breaks", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Breaks_LatestRun(t *testing.T) {
	st := newServeTestStore(t)
	run := seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/breaks", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		RunID  string              `json:"run_id"`
		Breaks []model.MergedBreak `json:"breaks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, run.ID, body.RunID)
	require.Len(t, body.Breaks, 2)
	assert.Equal(t, "Uluwatu", body.Breaks[0].Name)
}

func TestRouter_Breaks_CountryFilter(t *testing.T) {
	st := newServeTestStore(t)
	seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/breaks?country=Spain", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Breaks []model.MergedBreak `json:"breaks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Breaks, 1)
	assert.Equal(t, "Mundaka", body.Breaks[0].Name)
}

func TestRouter_RunStats(t *testing.T) {
	st := newServeTestStore(t)
	run := seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunCompleted, got.Status)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 2, got.Stats.Merged)
}

func TestRouter_RunStats_NotFound(t *testing.T) {
	st := newServeTestStore(t)
	seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
