package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
)

func TestLocationsMergeSkipsUnknownUsers(t *testing.T) {
	svc := testService(t)

	occurred := time.Now().UTC().Add(-time.Hour).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/mgmt/audit/search", r.URL.Path)
		err := json.NewEncoder(w).Encode(map[string]any{
			"audits": []map[string]any{
				{"userId": "u1", "occurred": occurred, "geo": "US", "remoteAddress": "10.1.2.3"},
				{"userId": "ghost", "occurred": occurred, "geo": "DE", "remoteAddress": "10.9.9.9"},
			},
		})
		require.NoError(t, err)
	}))
	t.Cleanup(srv.Close)

	svc.cfg.Descope.BaseURL = srv.URL
	svc.descope = provider.NewDescope(svc.cfg.Descope, provider.NewClient(svc.cfg.HTTPTimeout, svc.logger))

	_, err := svc.wh.DB().Exec(`INSERT INTO users (user_id, email) VALUES ('u1', 'u1@example.com')`)
	require.NoError(t, err)

	st := &locationsStage{svc}
	result, err := st.Run(context.Background(), "1")
	require.NoError(t, err)

	// The audit trail outlives deleted accounts; their login events must
	// not materialize as keyless user rows.
	require.NotNil(t, result.Merge)
	assert.EqualValues(t, 1, result.Merge.Matched)
	assert.EqualValues(t, 0, result.Merge.Inserted)

	var count int
	require.NoError(t, svc.wh.DB().QueryRow(`SELECT count(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)

	var ip, country string
	row := svc.wh.DB().QueryRow(`SELECT last_login_ip, last_login_country FROM users WHERE user_id = 'u1'`)
	require.NoError(t, row.Scan(&ip, &country))
	assert.Equal(t, "10.1.2.3", ip)
	assert.Equal(t, "US", country)
}
