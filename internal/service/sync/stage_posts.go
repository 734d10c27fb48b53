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

// postsStage syncs organization posts with their engagement counts. The
// feed arrives newest first, so the cursor stops pagination at already
// known content. Engagement lookups run per post behind the same
// governor; once the daily limit trips, remaining posts keep their zero
// counts and the stage ends partial.
type postsStage struct {
	s *Service
}

func (st *postsStage) Name() string    { return "posts" }
func (st *postsStage) Mandatory() bool { return false }

func (st *postsStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	cursor := s.wh.MaxWatermark(ctx, "linkedin_posts", "created_at")
	fetchedAt := time.Now().UTC()

	gov := ratelimit.New("linkedin", s.cfg.RequestRate, s.logger)
	fetcher := provider.NewFetcher(s.linkedin.Posts(), gov,
		s.cfg.Posts.PageSize, s.cfg.Posts.MaxPages, s.cfg.MaxRetries, s.logger)

	var rows [][]any
	var withoutSocial int
	for raw := range fetcher.Records(ctx, cursor) {
		id, _ := raw["id"].(string)

		var social map[string]any
		if id != "" && !gov.HardLimited() {
			var err error
			social, err = s.linkedin.SocialMetadata(ctx, gov, id)
			if err != nil {
				social = nil
				withoutSocial++
				switch {
				case domain.IsPermission(err):
					s.logger.Warn("no permission for post engagement", "post", id)
				case domain.IsHardLimit(err):
					s.logger.Warn("daily limit hit fetching engagement", "post", id)
				default:
					s.logger.Warn("failed to fetch post engagement", "post", id, "error", err)
				}
			}
		} else if id != "" {
			withoutSocial++
		}

		p, err := transform.Post(raw, social, fetchedAt)
		if err != nil {
			s.logger.Warn("dropping malformed post record", "error", err)
			continue
		}
		rows = append(rows, p.Values())
	}
	res := fetcher.Result()
	if res.Err != nil && len(rows) == 0 {
		return nil, fmt.Errorf("fetch posts: %w", res.Err)
	}

	result := &StageResult{
		Rows:          int64(len(rows)),
		Partial:       res.Partial,
		PartialReason: res.Reason,
	}
	if withoutSocial > 0 && !result.Partial {
		result.Partial = true
		result.PartialReason = fmt.Sprintf("%d posts merged without engagement counts", withoutSocial)
	}
	if len(rows) == 0 {
		return result, nil
	}

	staging, err := s.wh.CreateStaging(ctx, domain.PostsTable, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.Load(ctx, rows); err != nil {
		return nil, err
	}
	outcome, err := s.wh.Merge(ctx, staging, domain.PostsTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
