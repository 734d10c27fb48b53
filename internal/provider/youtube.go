package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
)

// YouTube lists a channel's uploads through the Data API. The SDK owns
// transport and auth; errors are reclassified into the shared provider
// error taxonomy so the fetch loop treats quota exhaustion like any
// other hard limit.
type YouTube struct {
	cfg config.YouTubeConfig
	svc *youtube.Service
}

func NewYouTube(ctx context.Context, cfg config.YouTubeConfig) (*YouTube, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &YouTube{cfg: cfg, svc: svc}, nil
}

// Videos returns a pager over the channel's videos, newest first, with
// statistics attached. A cursor restricts the search to videos published
// after the watermark.
func (y *YouTube) Videos() Pager { return &youtubeVideoPager{y} }

type youtubeVideoPager struct {
	y *YouTube
}

func (p *youtubeVideoPager) Name() string { return "youtube-videos" }

func (p *youtubeVideoPager) FetchPage(ctx context.Context, req FetchRequest) (*Page, error) {
	call := p.y.svc.Search.List([]string{"id"}).
		ChannelId(p.y.cfg.ChannelID).
		Type("video").
		Order("date").
		MaxResults(int64(req.PageSize)).
		Context(ctx)
	if req.Cursor != nil {
		call = call.PublishedAfter(req.Cursor.UTC().Format(time.RFC3339))
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}

	search, err := call.Do()
	if err != nil {
		return nil, classifyYouTubeErr(err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return &Page{Tokened: true}, nil
	}

	details, err := p.y.svc.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyYouTubeErr(err)
	}

	records := make([]RawRecord, 0, len(details.Items))
	for _, v := range details.Items {
		rec := RawRecord{"id": v.Id}
		if v.Snippet != nil {
			rec["title"] = v.Snippet.Title
			rec["description"] = v.Snippet.Description
			rec["publishedAt"] = v.Snippet.PublishedAt
		}
		if v.Statistics != nil {
			rec["viewCount"] = v.Statistics.ViewCount
			rec["likeCount"] = v.Statistics.LikeCount
			rec["commentCount"] = v.Statistics.CommentCount
		}
		records = append(records, rec)
	}
	return &Page{Records: records, Tokened: true, NextToken: search.NextPageToken}, nil
}

// classifyYouTubeErr maps SDK errors onto the provider taxonomy. Quota
// exhaustion resets at midnight Pacific, so it carries the daily scope
// even though the API reports it as 403.
func classifyYouTubeErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if hasReason(apiErr, "quotaExceeded") || strings.Contains(apiErr.Message, "quotaExceeded") {
			return domain.ErrRateLimit(domain.RateScopeHard, "youtube quota exhausted: %s", apiErr.Message)
		}
		return ratelimit.Classify(apiErr.Code, apiErr.Message)
	}
	return err
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
