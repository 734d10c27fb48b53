package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
	"github.com/nikhil-at-pieces/descope-sync/internal/transform"
)

// videosStage syncs channel videos. The cursor restricts the listing to
// videos published after the newest one already stored; statistics for
// those videos refresh on insert, older videos keep their last counts.
type videosStage struct {
	s *Service
}

func (st *videosStage) Name() string    { return "videos" }
func (st *videosStage) Mandatory() bool { return false }

func (st *videosStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	cursor := s.wh.MaxWatermark(ctx, "youtube_videos", "published_at")
	fetchedAt := time.Now().UTC()

	gov := ratelimit.New("youtube", s.cfg.RequestRate, s.logger)
	fetcher := provider.NewFetcher(s.youtube.Videos(), gov,
		s.cfg.Videos.PageSize, s.cfg.Videos.MaxPages, s.cfg.MaxRetries, s.logger)

	var rows [][]any
	for raw := range fetcher.Records(ctx, cursor) {
		v, err := transform.Video(raw, fetchedAt)
		if err != nil {
			s.logger.Warn("dropping malformed video record", "error", err)
			continue
		}
		rows = append(rows, v.Values())
	}
	res := fetcher.Result()
	if res.Err != nil && len(rows) == 0 {
		return nil, fmt.Errorf("fetch videos: %w", res.Err)
	}

	result := &StageResult{
		Rows:          int64(len(rows)),
		Partial:       res.Partial,
		PartialReason: res.Reason,
	}
	if len(rows) == 0 {
		return result, nil
	}

	staging, err := s.wh.CreateStaging(ctx, domain.VideosTable, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.Load(ctx, rows); err != nil {
		return nil, err
	}
	outcome, err := s.wh.Merge(ctx, staging, domain.VideosTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
