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
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
)

func testLinkedIn(t *testing.T, handler http.HandlerFunc) *LinkedIn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.LinkedInConfig{
		BaseURL:        srv.URL,
		AccessToken:    "tok",
		OrganizationID: "12345",
		Version:        "202502",
	}
	return NewLinkedIn(cfg, NewClient(5*time.Second, discardLogger()))
}

func postAt(id string, created time.Time) map[string]any {
	return map[string]any{"id": id, "createdAt": float64(created.UnixMilli())}
}

func TestLinkedInPostsPage(t *testing.T) {
	var gotQuery map[string][]string
	var gotVersion, gotProto string
	l := testLinkedIn(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/posts", r.URL.Path)
		gotQuery = r.URL.Query()
		gotVersion = r.Header.Get("LinkedIn-Version")
		gotProto = r.Header.Get("X-Restli-Protocol-Version")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"elements": []map[string]any{{"id": "urn:li:share:1"}},
		})
	})

	page, err := l.Posts().FetchPage(context.Background(), FetchRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)

	assert.Equal(t, []string{"author"}, gotQuery["q"])
	assert.Equal(t, []string{"urn:li:organization:12345"}, gotQuery["author"])
	assert.Equal(t, []string{"10"}, gotQuery["count"])
	assert.Equal(t, []string{"10"}, gotQuery["start"])
	assert.Equal(t, "202502", gotVersion)
	assert.Equal(t, "2.0.0", gotProto)
}

func TestCutAtWatermark(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := postAt("p1", now.Add(2*time.Hour))
	alsoNewer := postAt("p2", now.Add(time.Hour))
	atMark := postAt("p3", now)
	older := postAt("p4", now.Add(-time.Hour))

	t.Run("truncates_at_first_stale_record", func(t *testing.T) {
		got := cutAtWatermark([]RawRecord{newer, alsoNewer, atMark, older}, now)
		require.Len(t, got, 2)
		assert.Equal(t, "p1", got[0]["id"])
		assert.Equal(t, "p2", got[1]["id"])
	})

	t.Run("keeps_all_when_everything_is_new", func(t *testing.T) {
		got := cutAtWatermark([]RawRecord{newer, alsoNewer}, now)
		assert.Len(t, got, 2)
	})

	t.Run("empty_when_first_record_is_stale", func(t *testing.T) {
		got := cutAtWatermark([]RawRecord{atMark, older}, now)
		assert.Empty(t, got)
	})

	t.Run("records_without_timestamp_pass_through", func(t *testing.T) {
		got := cutAtWatermark([]RawRecord{{"id": "p9"}, older}, now)
		require.Len(t, got, 1)
		assert.Equal(t, "p9", got[0]["id"])
	})
}

func TestSocialMetadata(t *testing.T) {
	l := testLinkedIn(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/socialMetadata/urn:li:share:1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commentSummary": map[string]any{"count": 3},
		})
	})

	gov := ratelimit.New("linkedin", 0, discardLogger())
	meta, err := l.SocialMetadata(context.Background(), gov, "urn:li:share:1")
	require.NoError(t, err)
	assert.Contains(t, meta, "commentSummary")
}
