package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/runlog"
	syncsvc "github.com/nikhil-at-pieces/descope-sync/internal/service/sync"
	"github.com/nikhil-at-pieces/descope-sync/internal/warehouse"
)

func testHandler(t *testing.T, token string) (*Handler, *runlog.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	wh := warehouse.NewFromDB(db, logger)
	require.NoError(t, wh.EnsureTables(context.Background(), domain.UsersTable))

	runDB, err := runlog.OpenSQLite(filepath.Join(t.TempDir(), "runlog.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runDB.Close() })
	require.NoError(t, runlog.Migrate(runDB))
	runs := runlog.NewStore(runDB)

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	// All provider stages off: trigger requests exercise an empty pipeline.
	cfg.Users.Enabled = false
	cfg.Locations.Enabled = false
	cfg.GeoIP.Enabled = false
	cfg.Attribution.Enabled = false
	cfg.Activity.Enabled = false
	cfg.Posts.Enabled = false
	cfg.Videos.Enabled = false

	svc := syncsvc.New(cfg, wh, runs, nil, logger)
	return NewHandler(svc, runs, token, logger), runs
}

func TestHealthz(t *testing.T) {
	h, _ := testHandler(t, "")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTriggerSync(t *testing.T) {
	t.Run("unauthenticated_when_token_set", func(t *testing.T) {
		h, _ := testHandler(t, "secret")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong_token", func(t *testing.T) {
		h, _ := testHandler(t, "secret")
		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		req.Header.Set("X-Sync-Token", "wrong")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid_token_runs_and_reports", func(t *testing.T) {
		h, _ := testHandler(t, "secret")
		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		req.Header.Set("X-Sync-Token", "secret")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report domain.SyncReport
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.True(t, report.Success)
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, domain.TriggerTypeHTTP, report.TriggerType)
	})

	t.Run("no_token_configured_allows_all", func(t *testing.T) {
		h, _ := testHandler(t, "")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestListRuns(t *testing.T) {
	h, runs := testHandler(t, "")
	require.NoError(t, runs.CreateRun(context.Background(), &domain.SyncRun{
		ID: "r1", TriggerType: domain.TriggerTypeManual,
		Status: domain.RunStatusSuccess, StartedAt: time.Now().UTC(),
	}))

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.SyncRun
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestGetRun(t *testing.T) {
	h, runs := testHandler(t, "")
	now := time.Now().UTC()
	require.NoError(t, runs.CreateRun(context.Background(), &domain.SyncRun{
		ID: "r1", TriggerType: domain.TriggerTypeManual,
		Status: domain.RunStatusSuccess, StartedAt: now,
	}))
	require.NoError(t, runs.RecordOutcome(context.Background(), "r1", &domain.StageOutcome{
		Stage: "users", Status: domain.StageStatusSuccess,
		StartedAt: now, FinishedAt: now,
	}))

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		RunID  string                `json:"run_id"`
		Stages []domain.StageOutcome `json:"stages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "r1", got.RunID)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "users", got.Stages[0].Stage)
}

func TestRequestIDMiddleware(t *testing.T) {
	h, _ := testHandler(t, "")

	t.Run("generates_when_absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("reuses_incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "fixed-id")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)
		assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
	})

	t.Run("context_carries_the_id", func(t *testing.T) {
		var got string
		inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = RequestIDFromContext(r.Context())
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "fixed-id")
		RequestID(inner).ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "fixed-id", got)
	})
}
