package sync

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/runlog"
	"github.com/nikhil-at-pieces/descope-sync/internal/warehouse"
)

type fakeStage struct {
	name      string
	mandatory bool
	result    *StageResult
	err       error
	panics    bool
	calls     int
}

func (f *fakeStage) Name() string    { return f.name }
func (f *fakeStage) Mandatory() bool { return f.mandatory }
func (f *fakeStage) Run(context.Context, string) (*StageResult, error) {
	f.calls++
	if f.panics {
		panic("stage blew up")
	}
	return f.result, f.err
}

func testService(t *testing.T, stages ...Stage) *Service {
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

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	// Only explicitly injected stages run.
	cfg.Users.Enabled = false
	cfg.Locations.Enabled = false
	cfg.GeoIP.Enabled = false
	cfg.Attribution.Enabled = false
	cfg.Activity.Enabled = false
	cfg.Posts.Enabled = false
	cfg.Videos.Enabled = false

	svc := New(cfg, wh, runlog.NewStore(runDB), nil, logger)
	svc.pipeline = stages
	return svc
}

func TestRunAllStagesSucceed(t *testing.T) {
	a := &fakeStage{name: "a", mandatory: true, result: &StageResult{
		Rows:  5,
		Merge: &domain.MergeOutcome{Matched: 2, Inserted: 3, RowsAffected: 5},
	}}
	b := &fakeStage{name: "b", result: &StageResult{Rows: 1}}
	svc := testService(t, a, b)

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Outcomes, 2)

	out := report.Outcome("a")
	require.NotNil(t, out)
	assert.Equal(t, domain.StageStatusSuccess, out.Status)
	assert.EqualValues(t, 5, out.RowsProcessed)
	assert.EqualValues(t, 3, out.RowsInserted)
	assert.EqualValues(t, 2, out.RowsMatched)
}

func TestRunFailureIsolation(t *testing.T) {
	failing := &fakeStage{name: "flaky", err: errors.New("provider down")}
	after := &fakeStage{name: "after", result: &StageResult{}}
	svc := testService(t, failing, after)

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	// An optional stage failure never fails the run, and later stages
	// still execute.
	assert.True(t, report.Success)
	assert.Equal(t, 1, after.calls)

	out := report.Outcome("flaky")
	require.NotNil(t, out)
	assert.Equal(t, domain.StageStatusFailed, out.Status)
	require.NotNil(t, out.ErrorMessage)
	assert.Contains(t, *out.ErrorMessage, "provider down")
}

func TestRunMandatoryStageFailure(t *testing.T) {
	mandatory := &fakeStage{name: "users", mandatory: true, err: errors.New("auth rejected")}
	after := &fakeStage{name: "after", result: &StageResult{}}
	svc := testService(t, mandatory, after)

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	assert.False(t, report.Success)
	// Later stages still run even when a mandatory stage fails.
	assert.Equal(t, 1, after.calls)
}

func TestRunPanicRecovery(t *testing.T) {
	panicking := &fakeStage{name: "boom", panics: true}
	after := &fakeStage{name: "after", result: &StageResult{}}
	svc := testService(t, panicking, after)

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	assert.True(t, report.Success)
	assert.Equal(t, 1, after.calls)

	out := report.Outcome("boom")
	require.NotNil(t, out)
	assert.Equal(t, domain.StageStatusFailed, out.Status)
	require.NotNil(t, out.ErrorMessage)
	assert.Contains(t, *out.ErrorMessage, "panic")
}

func TestRunPartialStage(t *testing.T) {
	partial := &fakeStage{name: "posts", result: &StageResult{
		Rows:          10,
		Partial:       true,
		PartialReason: "daily rate limit reached",
	}}
	svc := testService(t, partial)

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	assert.True(t, report.Success)
	out := report.Outcome("posts")
	require.NotNil(t, out)
	assert.Equal(t, domain.StageStatusPartial, out.Status)
	require.NotNil(t, out.ErrorMessage)
	assert.Equal(t, "daily rate limit reached", *out.ErrorMessage)
}

func TestRunPersistsHistory(t *testing.T) {
	svc := testService(t, &fakeStage{name: "a", result: &StageResult{Rows: 1}})

	report := svc.Run(context.Background(), domain.TriggerTypeHTTP)

	runs, err := svc.runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, domain.TriggerTypeHTTP, runs[0].TriggerType)
	assert.Equal(t, domain.RunStatusSuccess, runs[0].Status)

	outcomes, err := svc.runs.ListOutcomes(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "a", outcomes[0].Stage)
}

func TestRunRecordsSkippedStages(t *testing.T) {
	svc := testService(t)
	// Credential-less but enabled stages surface as skipped.
	svc.cfg.Users.Enabled = true
	svc.cfg.GeoIP.Enabled = true
	svc.cfg.Posts.Enabled = true

	report := svc.Run(context.Background(), domain.TriggerTypeManual)

	assert.True(t, report.Success)
	require.NotNil(t, report.Outcome("users"))
	assert.Equal(t, domain.StageStatusSkipped, report.Outcome("users").Status)
	require.NotNil(t, report.Outcome("posts"))
	assert.Equal(t, domain.StageStatusSkipped, report.Outcome("posts").Status)

	// Skips keep their pipeline slot: geoip runs between the two skipped
	// stages, and the report preserves that order.
	require.Len(t, report.Outcomes, 3)
	var order []string
	for _, out := range report.Outcomes {
		order = append(order, out.Stage)
	}
	assert.Equal(t, []string{"users", "geoip", "posts"}, order)
	assert.Equal(t, domain.StageStatusSuccess, report.Outcome("geoip").Status)
}
