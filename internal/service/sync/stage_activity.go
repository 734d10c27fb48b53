package sync

import (
	"context"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// activitySelect computes the derived engagement columns from warehouse
// state. Column order matches the activity staging schema.
const activitySelect = `
SELECT
    user_id,
    CASE WHEN created_time IS NULL THEN NULL
         ELSE date_diff('day', created_time, now()) END,
    CASE WHEN last_login_time IS NULL THEN NULL
         ELSE date_diff('day', last_login_time, now()) END,
    CASE WHEN created_time IS NULL OR last_login_time IS NULL THEN NULL
         ELSE date_trunc('day', created_time) = date_trunc('day', last_login_time) END,
    CASE
        WHEN last_login_time IS NULL THEN 'Never Logged In'
        WHEN date_diff('day', last_login_time, now()) = 0 THEN 'Active Today'
        WHEN date_diff('day', last_login_time, now()) <= 3 THEN 'Active (1-3 days)'
        WHEN date_diff('day', last_login_time, now()) <= 7 THEN 'Active (4-7 days)'
        WHEN date_diff('day', last_login_time, now()) <= 30 THEN 'Dormant (8-30 days)'
        ELSE 'Inactive (30+ days)'
    END,
    CASE
        WHEN last_login_time IS NULL THEN 'Never Logged In'
        WHEN date_diff('day', last_login_time, now()) <= 7 THEN 'Active'
        WHEN date_diff('day', last_login_time, now()) <= 30 THEN 'Dormant'
        ELSE 'Inactive'
    END
FROM users`

// activityStage refreshes the derived engagement columns for every user.
// No provider is involved; rows are computed in the warehouse, staged,
// and merged, so the merge stays the only writer of the users table.
type activityStage struct {
	s *Service
}

func (st *activityStage) Name() string    { return "activity" }
func (st *activityStage) Mandatory() bool { return false }

func (st *activityStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	staging, err := s.wh.CreateStaging(ctx, domain.ActivitySchema, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.LoadFromQuery(ctx, activitySelect); err != nil {
		return nil, err
	}
	staged, err := staging.Count(ctx)
	if err != nil {
		return nil, err
	}
	result := &StageResult{Rows: staged}
	if staged == 0 {
		return result, nil
	}

	outcome, err := s.wh.Merge(ctx, staging, domain.UsersTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
