package domain

// Column describes one column of a warehouse table.
type Column struct {
	Name string
	Type string
}

// TableSchema describes a warehouse table (or a staging subset of one):
// its name, natural-key column, and columns in load order.
type TableSchema struct {
	Name    string
	Key     string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// UpdateColumns returns every column except the natural key. These are the
// columns a merge overwrites on match.
func (s TableSchema) UpdateColumns() []string {
	names := make([]string, 0, len(s.Columns)-1)
	for _, c := range s.Columns {
		if c.Name != s.Key {
			names = append(names, c.Name)
		}
	}
	return names
}

// UsersTable is the full users table: identity attributes from the provider
// plus enrichment and derived activity columns owned by later stages.
var UsersTable = TableSchema{
	Name: "users",
	Key:  "user_id",
	Columns: []Column{
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "login_ids", Type: "VARCHAR"},
		{Name: "display_name", Type: "VARCHAR"},
		{Name: "given_name", Type: "VARCHAR"},
		{Name: "family_name", Type: "VARCHAR"},
		{Name: "email", Type: "VARCHAR"},
		{Name: "verified_email", Type: "BOOLEAN"},
		{Name: "phone", Type: "VARCHAR"},
		{Name: "verified_phone", Type: "BOOLEAN"},
		{Name: "role_names", Type: "VARCHAR"},
		{Name: "user_tenants", Type: "VARCHAR"},
		{Name: "status", Type: "VARCHAR"},
		{Name: "picture", Type: "VARCHAR"},
		{Name: "test", Type: "BOOLEAN"},
		{Name: "custom_attributes", Type: "VARCHAR"},
		{Name: "created_time", Type: "TIMESTAMP"},
		{Name: "last_login_time", Type: "TIMESTAMP"},
		{Name: "last_login_country", Type: "VARCHAR"},
		{Name: "last_login_ip", Type: "VARCHAR"},
		{Name: "last_login_city", Type: "VARCHAR"},
		{Name: "last_login_region", Type: "VARCHAR"},
		{Name: "last_login_country_name", Type: "VARCHAR"},
		{Name: "days_since_signup", Type: "BIGINT"},
		{Name: "days_since_last_login", Type: "BIGINT"},
		{Name: "is_same_day_activation", Type: "BOOLEAN"},
		{Name: "user_activity_status", Type: "VARCHAR"},
		{Name: "simple_status", Type: "VARCHAR"},
		{Name: "first_touch_source", Type: "VARCHAR"},
		{Name: "first_touch_medium", Type: "VARCHAR"},
		{Name: "first_touch_campaign", Type: "VARCHAR"},
		{Name: "first_touch_channel_group", Type: "VARCHAR"},
		{Name: "first_touch_landing_page", Type: "VARCHAR"},
		{Name: "first_touch_page_title", Type: "VARCHAR"},
		{Name: "first_touch_referrer", Type: "VARCHAR"},
		{Name: "first_touch_at", Type: "TIMESTAMP"},
		{Name: "activation_date", Type: "TIMESTAMP"},
		{Name: "last_activity_at", Type: "TIMESTAMP"},
		{Name: "total_sessions", Type: "BIGINT"},
		{Name: "total_events", Type: "BIGINT"},
		{Name: "total_engagement_time_sec", Type: "BIGINT"},
		{Name: "days_active", Type: "BIGINT"},
	},
}

// UserSyncSchema is the staging shape for the identity sync stage: only the
// columns the provider owns. Enrichment columns are merged by later stages
// and must not be overwritten here.
var UserSyncSchema = TableSchema{
	Name: "users",
	Key:  "user_id",
	Columns: []Column{
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "login_ids", Type: "VARCHAR"},
		{Name: "display_name", Type: "VARCHAR"},
		{Name: "given_name", Type: "VARCHAR"},
		{Name: "family_name", Type: "VARCHAR"},
		{Name: "email", Type: "VARCHAR"},
		{Name: "verified_email", Type: "BOOLEAN"},
		{Name: "phone", Type: "VARCHAR"},
		{Name: "verified_phone", Type: "BOOLEAN"},
		{Name: "role_names", Type: "VARCHAR"},
		{Name: "user_tenants", Type: "VARCHAR"},
		{Name: "status", Type: "VARCHAR"},
		{Name: "picture", Type: "VARCHAR"},
		{Name: "test", Type: "BOOLEAN"},
		{Name: "custom_attributes", Type: "VARCHAR"},
		{Name: "created_time", Type: "TIMESTAMP"},
	},
}

// UserLocationSchema is the staging shape for the audit-derived latest-login
// pass, merged into users on user_id.
var UserLocationSchema = TableSchema{
	Name: "user_locations",
	Key:  "user_id",
	Columns: []Column{
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "last_login_time", Type: "TIMESTAMP"},
		{Name: "last_login_country", Type: "VARCHAR"},
		{Name: "last_login_ip", Type: "VARCHAR"},
	},
}

// GeoEnrichmentSchema is the staging shape for IP geolocation results,
// merged into users on last_login_ip.
var GeoEnrichmentSchema = TableSchema{
	Name: "geoip",
	Key:  "last_login_ip",
	Columns: []Column{
		{Name: "last_login_ip", Type: "VARCHAR"},
		{Name: "last_login_city", Type: "VARCHAR"},
		{Name: "last_login_region", Type: "VARCHAR"},
		{Name: "last_login_country_name", Type: "VARCHAR"},
		{Name: "last_login_country", Type: "VARCHAR"},
	},
}

// ActivitySchema is the staging shape for derived activity-status columns,
// computed from warehouse state and merged back into users on user_id.
var ActivitySchema = TableSchema{
	Name: "activity",
	Key:  "user_id",
	Columns: []Column{
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "days_since_signup", Type: "BIGINT"},
		{Name: "days_since_last_login", Type: "BIGINT"},
		{Name: "is_same_day_activation", Type: "BOOLEAN"},
		{Name: "user_activity_status", Type: "VARCHAR"},
		{Name: "simple_status", Type: "VARCHAR"},
	},
}

// AnalyticsEventsTable holds the web-analytics event export. The export
// job lands rows here; the sync pipeline only reads them.
var AnalyticsEventsTable = TableSchema{
	Name: "ga4_events",
	Key:  "event_id",
	Columns: []Column{
		{Name: "event_id", Type: "VARCHAR"},
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "event_name", Type: "VARCHAR"},
		{Name: "event_at", Type: "TIMESTAMP"},
		{Name: "session_id", Type: "VARCHAR"},
		{Name: "engagement_time_msec", Type: "BIGINT"},
		{Name: "source", Type: "VARCHAR"},
		{Name: "medium", Type: "VARCHAR"},
		{Name: "campaign", Type: "VARCHAR"},
		{Name: "channel_group", Type: "VARCHAR"},
		{Name: "page_location", Type: "VARCHAR"},
		{Name: "page_title", Type: "VARCHAR"},
		{Name: "page_referrer", Type: "VARCHAR"},
	},
}

// AttributionSchema is the staging shape for first-touch attribution and
// engagement metrics derived from the analytics events, merged into
// users on user_id.
var AttributionSchema = TableSchema{
	Name: "attribution",
	Key:  "user_id",
	Columns: []Column{
		{Name: "user_id", Type: "VARCHAR"},
		{Name: "first_touch_source", Type: "VARCHAR"},
		{Name: "first_touch_medium", Type: "VARCHAR"},
		{Name: "first_touch_campaign", Type: "VARCHAR"},
		{Name: "first_touch_channel_group", Type: "VARCHAR"},
		{Name: "first_touch_landing_page", Type: "VARCHAR"},
		{Name: "first_touch_page_title", Type: "VARCHAR"},
		{Name: "first_touch_referrer", Type: "VARCHAR"},
		{Name: "first_touch_at", Type: "TIMESTAMP"},
		{Name: "activation_date", Type: "TIMESTAMP"},
		{Name: "last_activity_at", Type: "TIMESTAMP"},
		{Name: "total_sessions", Type: "BIGINT"},
		{Name: "total_events", Type: "BIGINT"},
		{Name: "total_engagement_time_sec", Type: "BIGINT"},
		{Name: "days_active", Type: "BIGINT"},
	},
}

// PostsTable holds organization posts with social metrics.
var PostsTable = TableSchema{
	Name: "linkedin_posts",
	Key:  "post_id",
	Columns: []Column{
		{Name: "post_id", Type: "VARCHAR"},
		{Name: "post_type", Type: "VARCHAR"},
		{Name: "text", Type: "VARCHAR"},
		{Name: "author_urn", Type: "VARCHAR"},
		{Name: "created_at", Type: "TIMESTAMP"},
		{Name: "published_at", Type: "TIMESTAMP"},
		{Name: "last_modified_at", Type: "TIMESTAMP"},
		{Name: "visibility", Type: "VARCHAR"},
		{Name: "lifecycle_state", Type: "VARCHAR"},
		{Name: "is_reshare", Type: "BOOLEAN"},
		{Name: "reshare_parent_urn", Type: "VARCHAR"},
		{Name: "has_media", Type: "BOOLEAN"},
		{Name: "media_type", Type: "VARCHAR"},
		{Name: "comments_state", Type: "VARCHAR"},
		{Name: "comment_count", Type: "BIGINT"},
		{Name: "top_level_comment_count", Type: "BIGINT"},
		{Name: "reaction_like", Type: "BIGINT"},
		{Name: "reaction_celebrate", Type: "BIGINT"},
		{Name: "reaction_support", Type: "BIGINT"},
		{Name: "reaction_love", Type: "BIGINT"},
		{Name: "reaction_insightful", Type: "BIGINT"},
		{Name: "reaction_funny", Type: "BIGINT"},
		{Name: "total_reactions", Type: "BIGINT"},
		{Name: "fetched_at", Type: "TIMESTAMP"},
	},
}

// VideosTable holds channel videos with view statistics.
var VideosTable = TableSchema{
	Name: "youtube_videos",
	Key:  "video_id",
	Columns: []Column{
		{Name: "video_id", Type: "VARCHAR"},
		{Name: "title", Type: "VARCHAR"},
		{Name: "description", Type: "VARCHAR"},
		{Name: "published_at", Type: "TIMESTAMP"},
		{Name: "view_count", Type: "BIGINT"},
		{Name: "like_count", Type: "BIGINT"},
		{Name: "comment_count", Type: "BIGINT"},
		{Name: "fetched_at", Type: "TIMESTAMP"},
	},
}
