package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
)

// LinkedIn reads organization posts and their engagement metadata from
// the versioned REST API.
type LinkedIn struct {
	cfg    config.LinkedInConfig
	client *Client
}

func NewLinkedIn(cfg config.LinkedInConfig, client *Client) *LinkedIn {
	return &LinkedIn{cfg: cfg, client: client}
}

func (l *LinkedIn) headers() map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + l.cfg.AccessToken,
		"LinkedIn-Version":          l.cfg.Version,
		"X-Restli-Protocol-Version": "2.0.0",
	}
}

// Posts returns a pager over the organization's posts, newest first.
// When cursor is set, records at or before the watermark are cut from
// the page; the resulting short page stops the fetch, so already-synced
// history is never re-requested.
func (l *LinkedIn) Posts() Pager { return &linkedinPostPager{l} }

type linkedinPostPager struct {
	l *LinkedIn
}

func (p *linkedinPostPager) Name() string { return "linkedin-posts" }

func (p *linkedinPostPager) FetchPage(ctx context.Context, req FetchRequest) (*Page, error) {
	author := fmt.Sprintf("urn:li:organization:%s", p.l.cfg.OrganizationID)
	u := fmt.Sprintf("%s/rest/posts?q=author&author=%s&count=%d&start=%d",
		p.l.cfg.BaseURL, url.QueryEscape(author), req.PageSize, (req.Page-1)*req.PageSize)

	var resp struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := p.l.client.GetJSON(ctx, u, p.l.headers(), &resp); err != nil {
		return nil, err
	}

	records := resp.Elements
	if req.Cursor != nil {
		records = cutAtWatermark(records, *req.Cursor)
	}
	return &Page{Records: records}, nil
}

// cutAtWatermark drops every record created at or before the watermark
// and everything after it. Posts arrive newest first, so the first stale
// record marks the end of new content.
func cutAtWatermark(records []RawRecord, watermark time.Time) []RawRecord {
	for i, rec := range records {
		createdMs, ok := rec["createdAt"].(float64)
		if !ok {
			continue
		}
		created := time.UnixMilli(int64(createdMs)).UTC()
		if !created.After(watermark) {
			return records[:i]
		}
	}
	return records
}

// SocialMetadata fetches like, comment, and reaction counts for one post.
// The call is governed: a hard limit observed here poisons the governor
// so the stage stops asking for more metadata.
func (l *LinkedIn) SocialMetadata(ctx context.Context, gov *ratelimit.Governor, postURN string) (map[string]any, error) {
	if err := gov.Wait(ctx); err != nil {
		return nil, err
	}
	u := l.cfg.BaseURL + "/rest/socialMetadata/" + url.PathEscape(postURN)

	var resp map[string]any
	if err := l.client.GetJSON(ctx, u, l.headers(), &resp); err != nil {
		gov.Observe(err)
		return nil, err
	}
	gov.ObserveSuccess()
	return resp, nil
}
