package transform

import (
	"strconv"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Video maps a normalized YouTube record to a warehouse row. Statistics
// arrive as strings or unsigned integers depending on the SDK path, so
// counts go through a tolerant conversion.
func Video(raw map[string]any, fetchedAt time.Time) (*domain.Video, error) {
	id := getString(raw, "id")
	if id == "" {
		return nil, domain.ErrMalformed("id", "missing or empty")
	}

	v := &domain.Video{
		VideoID:      id,
		Title:        getString(raw, "title"),
		Description:  getString(raw, "description"),
		ViewCount:    toCount(raw["viewCount"]),
		LikeCount:    toCount(raw["likeCount"]),
		CommentCount: toCount(raw["commentCount"]),
		FetchedAt:    fetchedAt,
	}

	if s := getString(raw, "publishedAt"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = t.UTC()
			v.PublishedAt = &t
		}
	}
	return v, nil
}

func toCount(v any) int64 {
	switch n := v.(type) {
	case uint64:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		c, _ := strconv.ParseInt(n, 10, 64)
		return c
	}
	return 0
}
