package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

func TestAttributionStage(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	require.NoError(t, svc.wh.EnsureTables(ctx, domain.AnalyticsEventsTable))
	stage := &attributionStage{svc}

	_, err := svc.wh.DB().Exec(`INSERT INTO users (user_id, email) VALUES
		('u1', 'u1@example.com'),
		('quiet', 'quiet@example.com')`)
	require.NoError(t, err)

	_, err = svc.wh.DB().Exec(`INSERT INTO ga4_events
		(event_id, user_id, event_name, event_at, session_id, engagement_time_msec,
		 source, medium, campaign, channel_group, page_location, page_title, page_referrer) VALUES
		('e1', 'u1', 'page_view', TIMESTAMP '2026-08-01 09:00:00', 's1', 30000,
		 'google', 'organic', NULL, 'Organic Search', 'https://example.com/', 'Home', 'https://www.google.com/'),
		('e2', 'u1', 'sign_up', TIMESTAMP '2026-08-01 09:05:00', 's1', 45000,
		 'google', 'organic', NULL, 'Organic Search', 'https://example.com/signup', 'Sign Up', NULL),
		('e3', 'u1', 'page_view', TIMESTAMP '2026-08-03 14:00:00', 's2', 15000,
		 'newsletter', 'email', 'aug-digest', 'Email', 'https://example.com/docs', 'Docs', NULL),
		('e4', 'ghost', 'page_view', TIMESTAMP '2026-08-02 10:00:00', 's9', 1000,
		 'direct', 'none', NULL, 'Direct', 'https://example.com/', 'Home', NULL),
		('e5', '', 'page_view', TIMESTAMP '2026-08-02 11:00:00', 's10', 1000,
		 'direct', 'none', NULL, 'Direct', 'https://example.com/', 'Home', NULL)`)
	require.NoError(t, err)

	res, err := stage.Run(ctx, "42")
	require.NoError(t, err)

	// u1 and ghost reach staging; anonymous events never do. Only u1
	// matches a user row.
	assert.EqualValues(t, 2, res.Rows)
	require.NotNil(t, res.Merge)
	assert.EqualValues(t, 1, res.Merge.Matched)
	assert.EqualValues(t, 0, res.Merge.Inserted)

	var count int
	require.NoError(t, svc.wh.DB().QueryRow(`SELECT count(*) FROM users`).Scan(&count))
	assert.Equal(t, 2, count)

	t.Run("first_touch", func(t *testing.T) {
		var source, medium, channel, landing, title string
		require.NoError(t, svc.wh.DB().QueryRow(
			`SELECT first_touch_source, first_touch_medium, first_touch_channel_group,
			        first_touch_landing_page, first_touch_page_title
			 FROM users WHERE user_id = 'u1'`).
			Scan(&source, &medium, &channel, &landing, &title))
		assert.Equal(t, "google", source)
		assert.Equal(t, "organic", medium)
		assert.Equal(t, "Organic Search", channel)
		assert.Equal(t, "https://example.com/", landing)
		assert.Equal(t, "Home", title)
	})

	t.Run("engagement", func(t *testing.T) {
		var sessions, events, engagementSec, daysActive int64
		require.NoError(t, svc.wh.DB().QueryRow(
			`SELECT total_sessions, total_events, total_engagement_time_sec, days_active
			 FROM users WHERE user_id = 'u1'`).
			Scan(&sessions, &events, &engagementSec, &daysActive))
		assert.EqualValues(t, 2, sessions)
		assert.EqualValues(t, 3, events)
		assert.EqualValues(t, 90, engagementSec)
		assert.EqualValues(t, 2, daysActive)
	})

	t.Run("users_without_events_untouched", func(t *testing.T) {
		var source *string
		require.NoError(t, svc.wh.DB().QueryRow(
			`SELECT first_touch_source FROM users WHERE user_id = 'quiet'`).Scan(&source))
		assert.Nil(t, source)
	})

	t.Run("no_events_is_a_no_op", func(t *testing.T) {
		_, err := svc.wh.DB().Exec(`DELETE FROM ga4_events`)
		require.NoError(t, err)

		res, err := stage.Run(ctx, "43")
		require.NoError(t, err)
		assert.Zero(t, res.Rows)
		assert.Nil(t, res.Merge)
	})
}
