package sync

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Run executes the full pipeline once. Stages run in order; a failing
// stage is recorded and the pipeline moves on, so one provider outage
// never blocks the others. The run fails only when a mandatory stage
// does. Run history persistence is best effort: a broken run log logs a
// warning, it never stops a sync.
func (s *Service) Run(ctx context.Context, triggerType string) *domain.SyncReport {
	run := &domain.SyncRun{
		ID:          uuid.NewString(),
		TriggerType: triggerType,
		Status:      domain.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	// The token namespaces staging tables so overlapping runs never
	// collide.
	runToken := strconv.FormatInt(run.StartedAt.UnixNano(), 10)

	logger := s.logger.With("run_id", run.ID, "trigger", triggerType)
	logger.Info("sync run started")

	if err := s.runs.CreateRun(ctx, run); err != nil {
		logger.Warn("failed to record run start", "error", err)
	}

	report := &domain.SyncReport{
		RunID:       run.ID,
		TriggerType: triggerType,
		StartedAt:   run.StartedAt,
		Success:     true,
	}

	for _, entry := range s.plan() {
		var outcome *domain.StageOutcome
		if entry.stage == nil {
			now := time.Now().UTC()
			reason := entry.skipReason
			outcome = &domain.StageOutcome{
				Stage:        entry.name,
				Status:       domain.StageStatusSkipped,
				ErrorMessage: &reason,
				StartedAt:    now,
				FinishedAt:   now,
			}
			logger.Info("stage skipped", "stage", entry.name, "reason", reason)
		} else {
			outcome = s.runStage(ctx, entry.stage, runToken, logger)
			if outcome.Status == domain.StageStatusFailed && entry.stage.Mandatory() {
				report.Success = false
			}
		}
		report.Outcomes = append(report.Outcomes, *outcome)
		if err := s.runs.RecordOutcome(ctx, run.ID, outcome); err != nil {
			logger.Warn("failed to record stage outcome", "stage", entry.name, "error", err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	status := domain.RunStatusSuccess
	var runErr *string
	if !report.Success {
		status = domain.RunStatusFailed
		msg := "mandatory stage failed"
		runErr = &msg
	}
	if err := s.runs.FinishRun(ctx, run.ID, status, report.FinishedAt, runErr); err != nil {
		logger.Warn("failed to record run finish", "error", err)
	}

	logger.Info("sync run finished",
		"status", status,
		"stages", len(report.Outcomes),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report
}

// runStage executes one stage with panic isolation. A panicking stage is
// a failed stage, not a crashed service.
func (s *Service) runStage(ctx context.Context, stage Stage, runToken string, logger *slog.Logger) (outcome *domain.StageOutcome) {
	started := time.Now().UTC()
	outcome = &domain.StageOutcome{
		Stage:     stage.Name(),
		StartedAt: started,
	}
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			outcome.Status = domain.StageStatusFailed
			outcome.ErrorMessage = &msg
			outcome.FinishedAt = time.Now().UTC()
			logger.Error("stage panicked", "stage", stage.Name(), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	logger.Info("stage started", "stage", stage.Name())
	res, err := stage.Run(ctx, runToken)
	outcome.FinishedAt = time.Now().UTC()

	if err != nil {
		msg := err.Error()
		outcome.Status = domain.StageStatusFailed
		outcome.ErrorMessage = &msg
		logger.Error("stage failed", "stage", stage.Name(), "error", err)
		return outcome
	}

	outcome.Status = domain.StageStatusSuccess
	if res != nil {
		outcome.RowsProcessed = res.Rows
		if res.Merge != nil {
			outcome.RowsInserted = res.Merge.Inserted
			outcome.RowsMatched = res.Merge.Matched
		}
		if res.Partial {
			outcome.Status = domain.StageStatusPartial
			outcome.ErrorMessage = &res.PartialReason
		}
	}
	logger.Info("stage finished",
		"stage", stage.Name(),
		"status", outcome.Status,
		"rows", outcome.RowsProcessed,
		"inserted", outcome.RowsInserted,
		"matched", outcome.RowsMatched,
	)
	return outcome
}
