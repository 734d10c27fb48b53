package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

func testDescope(t *testing.T, handler http.HandlerFunc) *Descope {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.DescopeConfig{
		BaseURL:       srv.URL,
		ProjectID:     "P1",
		ManagementKey: "K1",
	}
	return NewDescope(cfg, NewClient(5*time.Second, discardLogger()))
}

func TestDescopeUserSearch(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	d := testDescope(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/mgmt/user/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{{"userId": "u1"}, {"userId": "u2"}},
			"total": 2,
		})
	})

	t.Run("full_scan_without_cursor", func(t *testing.T) {
		page, err := d.Users().FetchPage(context.Background(), FetchRequest{Page: 1, PageSize: 100})
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.Equal(t, 2, page.Total)

		assert.Equal(t, "Bearer P1:K1", gotAuth)
		assert.EqualValues(t, 100, gotBody["limit"])
		assert.EqualValues(t, 0, gotBody["page"])
		_, hasCursor := gotBody["fromModifiedTime"]
		assert.False(t, hasCursor)
	})

	t.Run("cursor_becomes_epoch_millis", func(t *testing.T) {
		cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		_, err := d.Users().FetchPage(context.Background(), FetchRequest{Page: 2, PageSize: 50, Cursor: &cursor})
		require.NoError(t, err)
		assert.EqualValues(t, cursor.UnixMilli(), gotBody["fromModifiedTime"])
		assert.EqualValues(t, 1, gotBody["page"])
	})
}

func TestDescopeAuditSearch(t *testing.T) {
	var gotBody map[string]any
	d := testDescope(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/mgmt/audit/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"audits": []map[string]any{{"userId": "u1", "occurred": 1700000000000}},
		})
	})

	since := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	page, err := d.Audits(since).FetchPage(context.Background(), FetchRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)

	assert.EqualValues(t, since.UnixMilli(), gotBody["from"])
	actions, ok := gotBody["actions"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"LoginSucceed", "LoginFlowDone"}, actions)
}

func TestDescopeErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"soft_limit", 429, `{"message":"rate limit exceeded"}`, func(t *testing.T, err error) {
			assert.True(t, domain.IsSoftLimit(err))
		}},
		{"hard_limit", 429, `{"message":"Requests exceeded DAY limit"}`, func(t *testing.T, err error) {
			assert.True(t, domain.IsHardLimit(err))
		}},
		{"server_error", 500, `oops`, func(t *testing.T, err error) {
			assert.True(t, domain.IsTransient(err))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDescope(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := d.Users().FetchPage(context.Background(), FetchRequest{Page: 1, PageSize: 10})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
