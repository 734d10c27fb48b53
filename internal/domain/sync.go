package domain

import "time"

// Stage status constants.
const (
	StageStatusSuccess = "SUCCESS"
	StageStatusPartial = "PARTIAL"
	StageStatusFailed  = "FAILED"
	StageStatusSkipped = "SKIPPED"

	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"

	TriggerTypeManual    = "MANUAL"
	TriggerTypeScheduled = "SCHEDULED"
	TriggerTypeHTTP      = "HTTP"
)

// MergeOutcome reports the result of one staging-to-target merge.
type MergeOutcome struct {
	Matched      int64 `json:"matched"`
	Inserted     int64 `json:"inserted"`
	RowsAffected int64 `json:"rows_affected"`
}

// StageOutcome is the terminal result of one sync stage.
type StageOutcome struct {
	Stage         string    `json:"stage"`
	Status        string    `json:"status"`
	RowsProcessed int64     `json:"rows_processed"`
	RowsInserted  int64     `json:"rows_inserted"`
	RowsMatched   int64     `json:"rows_matched"`
	ErrorMessage  *string   `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// SyncRun is the persisted record of one sync execution.
type SyncRun struct {
	ID           string     `json:"id"`
	TriggerType  string     `json:"trigger_type"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error,omitempty"`
}

// SyncReport aggregates per-stage outcomes for one run. The run counts as
// successful when its mandatory first stage succeeded; all other stages are
// best-effort.
type SyncReport struct {
	RunID       string         `json:"run_id"`
	TriggerType string         `json:"trigger_type"`
	Success     bool           `json:"success"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Outcomes    []StageOutcome `json:"stages"`
}

// Outcome returns the outcome for the named stage, or nil.
func (r *SyncReport) Outcome(stage string) *StageOutcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Stage == stage {
			return &r.Outcomes[i]
		}
	}
	return nil
}
