package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Store reads and writes run history.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun records the start of a run in RUNNING state.
func (s *Store) CreateRun(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, trigger_type, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.TriggerType, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, finishedAt time.Time, errorMessage *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		status, finishedAt, errorMessage, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// RecordOutcome persists one stage outcome for a run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o *domain.StageOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_outcomes
		   (run_id, stage, status, rows_processed, rows_inserted, rows_matched, error_message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Stage, o.Status, o.RowsProcessed, o.RowsInserted, o.RowsMatched,
		o.ErrorMessage, o.StartedAt, o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record outcome %s/%s: %w", runID, o.Stage, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_type, status, started_at, finished_at, error_message
		   FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.SyncRun
	for rows.Next() {
		var r domain.SyncRun
		if err := rows.Scan(&r.ID, &r.TriggerType, &r.Status, &r.StartedAt, &r.FinishedAt, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOutcomes returns the stage outcomes of one run in recorded order.
func (s *Store) ListOutcomes(ctx context.Context, runID string) ([]domain.StageOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, rows_processed, rows_inserted, rows_matched, error_message, started_at, finished_at
		   FROM stage_outcomes WHERE run_id = ? ORDER BY started_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes %s: %w", runID, err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.StageOutcome
	for rows.Next() {
		var o domain.StageOutcome
		if err := rows.Scan(&o.Stage, &o.Status, &o.RowsProcessed, &o.RowsInserted, &o.RowsMatched,
			&o.ErrorMessage, &o.StartedAt, &o.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
