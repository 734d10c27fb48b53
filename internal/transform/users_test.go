package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

func TestUser(t *testing.T) {
	t.Run("full_record", func(t *testing.T) {
		raw := map[string]any{
			"userId":        "u1",
			"loginIds":      []any{"u1@example.com"},
			"name":          "Ada Lovelace",
			"email":         "u1@example.com",
			"verifiedEmail": true,
			"roleNames":     []any{"admin"},
			"customAttributes": map[string]any{
				"plan": "pro",
			},
			"status":      "enabled",
			"createdTime": float64(1700000000),
		}
		u, err := User(raw)
		require.NoError(t, err)

		assert.Equal(t, "u1", u.UserID)
		assert.Equal(t, `["u1@example.com"]`, u.LoginIDs)
		require.NotNil(t, u.DisplayName)
		assert.Equal(t, "Ada Lovelace", *u.DisplayName)
		require.NotNil(t, u.VerifiedEmail)
		assert.True(t, *u.VerifiedEmail)
		assert.Equal(t, `{"plan":"pro"}`, u.CustomAttributes)
		require.NotNil(t, u.CreatedTime)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), *u.CreatedTime)
	})

	t.Run("minimal_record", func(t *testing.T) {
		u, err := User(map[string]any{"userId": "u2"})
		require.NoError(t, err)
		assert.Equal(t, "u2", u.UserID)
		assert.Nil(t, u.Email)
		assert.Nil(t, u.CreatedTime)
		assert.Empty(t, u.RoleNames)
	})

	t.Run("missing_key_is_malformed", func(t *testing.T) {
		_, err := User(map[string]any{"email": "x@example.com"})
		require.Error(t, err)
		assert.True(t, domain.IsMalformed(err))
	})

	t.Run("empty_key_is_malformed", func(t *testing.T) {
		_, err := User(map[string]any{"userId": ""})
		require.Error(t, err)
		assert.True(t, domain.IsMalformed(err))
	})

	t.Run("values_match_schema_arity", func(t *testing.T) {
		u, err := User(map[string]any{"userId": "u3"})
		require.NoError(t, err)
		assert.Len(t, u.Values(), len(domain.UserSyncSchema.Columns))
	})
}

func TestLoginEvent(t *testing.T) {
	t.Run("full_record", func(t *testing.T) {
		ev, err := LoginEvent(map[string]any{
			"userId":        "u1",
			"occurred":      float64(1700000000000),
			"geo":           "PT",
			"remoteAddress": "1.2.3.4",
		})
		require.NoError(t, err)
		assert.Equal(t, "u1", ev.UserID)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), ev.LoginTime)
		assert.Equal(t, "PT", ev.Country)
		assert.Equal(t, "1.2.3.4", ev.IP)
	})

	t.Run("missing_geo_tolerated", func(t *testing.T) {
		ev, err := LoginEvent(map[string]any{"userId": "u1", "occurred": float64(1)})
		require.NoError(t, err)
		assert.Empty(t, ev.Country)
		assert.Empty(t, ev.IP)
	})

	t.Run("missing_time_is_malformed", func(t *testing.T) {
		_, err := LoginEvent(map[string]any{"userId": "u1"})
		require.Error(t, err)
		assert.True(t, domain.IsMalformed(err))
	})

	t.Run("missing_user_is_malformed", func(t *testing.T) {
		_, err := LoginEvent(map[string]any{"occurred": float64(1)})
		require.Error(t, err)
		assert.True(t, domain.IsMalformed(err))
	})
}
