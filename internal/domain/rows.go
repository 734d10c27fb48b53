package domain

import "time"

// User is the canonical identity row. List- and map-valued provider fields
// are carried as JSON-encoded strings.
type User struct {
	UserID           string
	LoginIDs         string
	DisplayName      *string
	GivenName        *string
	FamilyName       *string
	Email            *string
	VerifiedEmail    *bool
	Phone            *string
	VerifiedPhone    *bool
	RoleNames        string
	UserTenants      string
	Status           *string
	Picture          *string
	Test             *bool
	CustomAttributes string
	CreatedTime      *time.Time
}

// Values returns the row values in UserSyncSchema column order.
func (u *User) Values() []any {
	return []any{
		u.UserID, u.LoginIDs, u.DisplayName, u.GivenName, u.FamilyName,
		u.Email, u.VerifiedEmail, u.Phone, u.VerifiedPhone, u.RoleNames,
		u.UserTenants, u.Status, u.Picture, u.Test, u.CustomAttributes,
		timeValue(u.CreatedTime),
	}
}

// UserLocation is the latest-login row derived from audit events.
type UserLocation struct {
	UserID    string
	LoginTime time.Time
	Country   string
	IP        string
}

// Values returns the row values in UserLocationSchema column order.
func (l *UserLocation) Values() []any {
	return []any{l.UserID, l.LoginTime, l.Country, l.IP}
}

// GeoLocation is the normalized result of one IP geolocation lookup.
// Source tags the provider that answered.
type GeoLocation struct {
	IP          string
	City        string
	Region      string
	CountryName string
	CountryCode string
	Source      string
}

// Values returns the row values in GeoEnrichmentSchema column order.
func (g *GeoLocation) Values() []any {
	return []any{g.IP, g.City, g.Region, g.CountryName, g.CountryCode}
}

// Post is the canonical organization-post row.
type Post struct {
	PostID               string
	PostType             string
	Text                 string
	AuthorURN            *string
	CreatedAt            *time.Time
	PublishedAt          *time.Time
	LastModifiedAt       *time.Time
	Visibility           *string
	LifecycleState       *string
	IsReshare            bool
	ReshareParentURN     *string
	HasMedia             bool
	MediaType            string
	CommentsState        *string
	CommentCount         int64
	TopLevelCommentCount int64
	ReactionLike         int64
	ReactionCelebrate    int64
	ReactionSupport      int64
	ReactionLove         int64
	ReactionInsightful   int64
	ReactionFunny        int64
	TotalReactions       int64
	FetchedAt            time.Time
}

// Values returns the row values in PostsTable column order.
func (p *Post) Values() []any {
	return []any{
		p.PostID, p.PostType, p.Text, p.AuthorURN,
		timeValue(p.CreatedAt), timeValue(p.PublishedAt), timeValue(p.LastModifiedAt),
		p.Visibility, p.LifecycleState, p.IsReshare, p.ReshareParentURN,
		p.HasMedia, p.MediaType, p.CommentsState, p.CommentCount,
		p.TopLevelCommentCount, p.ReactionLike, p.ReactionCelebrate,
		p.ReactionSupport, p.ReactionLove, p.ReactionInsightful,
		p.ReactionFunny, p.TotalReactions, p.FetchedAt,
	}
}

// Video is the canonical channel-video row.
type Video struct {
	VideoID      string
	Title        string
	Description  string
	PublishedAt  *time.Time
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	FetchedAt    time.Time
}

// Values returns the row values in VideosTable column order.
func (v *Video) Values() []any {
	return []any{
		v.VideoID, v.Title, v.Description, timeValue(v.PublishedAt),
		v.ViewCount, v.LikeCount, v.CommentCount, v.FetchedAt,
	}
}

// timeValue unwraps an optional timestamp for driver binding. A typed nil
// pointer would confuse some drivers; untyped nil never does.
func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
