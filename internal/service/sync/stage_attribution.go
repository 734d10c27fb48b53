package sync

import (
	"context"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// attributionSelect derives first-touch attribution and engagement
// metrics from the analytics event export. First touch is the earliest
// event per user; engagement aggregates the whole history. Column order
// matches the attribution staging schema.
const attributionSelect = `
WITH first_touch AS (
    SELECT
        user_id,
        source,
        medium,
        campaign,
        channel_group,
        page_location,
        page_title,
        page_referrer,
        event_at
    FROM ga4_events
    WHERE user_id IS NOT NULL AND user_id <> ''
    QUALIFY row_number() OVER (PARTITION BY user_id ORDER BY event_at, event_id) = 1
),
engagement AS (
    SELECT
        user_id,
        min(event_at) AS activation_date,
        max(event_at) AS last_activity_at,
        count(DISTINCT session_id) AS total_sessions,
        count(*) AS total_events,
        CAST(sum(coalesce(engagement_time_msec, 0)) / 1000 AS BIGINT) AS total_engagement_time_sec,
        count(DISTINCT CAST(event_at AS DATE)) AS days_active
    FROM ga4_events
    WHERE user_id IS NOT NULL AND user_id <> ''
    GROUP BY user_id
)
SELECT
    ft.user_id,
    ft.source,
    ft.medium,
    ft.campaign,
    ft.channel_group,
    ft.page_location,
    ft.page_title,
    ft.page_referrer,
    ft.event_at,
    em.activation_date,
    em.last_activity_at,
    em.total_sessions,
    em.total_events,
    em.total_engagement_time_sec,
    em.days_active
FROM first_touch ft
JOIN engagement em ON ft.user_id = em.user_id`

// attributionStage enriches users with marketing attribution from the
// web-analytics event export. Events land in the warehouse out of band;
// this stage only reads them. The merge is update-only because analytics
// events carry anonymous and pre-signup identifiers that must never
// become user rows.
type attributionStage struct {
	s *Service
}

func (st *attributionStage) Name() string    { return "attribution" }
func (st *attributionStage) Mandatory() bool { return false }

func (st *attributionStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	staging, err := s.wh.CreateStaging(ctx, domain.AttributionSchema, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.LoadFromQuery(ctx, attributionSelect); err != nil {
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

	outcome, err := s.wh.MergeUpdateOnly(ctx, staging, domain.UsersTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
