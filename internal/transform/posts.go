package transform

import (
	"strings"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// reactionKeys maps LinkedIn reaction types to their post columns.
var reactionKeys = map[string]func(*domain.Post) *int64{
	"LIKE":          func(p *domain.Post) *int64 { return &p.ReactionLike },
	"PRAISE":        func(p *domain.Post) *int64 { return &p.ReactionCelebrate },
	"APPRECIATION":  func(p *domain.Post) *int64 { return &p.ReactionSupport },
	"EMPATHY":       func(p *domain.Post) *int64 { return &p.ReactionLove },
	"INTEREST":      func(p *domain.Post) *int64 { return &p.ReactionInsightful },
	"ENTERTAINMENT": func(p *domain.Post) *int64 { return &p.ReactionFunny },
}

// Post maps a LinkedIn post record plus its social metadata to a
// warehouse row. social may be nil when engagement could not be fetched;
// the counts then stay zero and a later run refreshes them.
func Post(raw map[string]any, social map[string]any, fetchedAt time.Time) (*domain.Post, error) {
	id := getString(raw, "id")
	if id == "" {
		return nil, domain.ErrMalformed("id", "missing or empty")
	}

	p := &domain.Post{
		PostID:         id,
		Text:           getString(raw, "commentary"),
		AuthorURN:      optString(raw, "author"),
		CreatedAt:      msTime(raw, "createdAt"),
		PublishedAt:    msTime(raw, "publishedAt"),
		LastModifiedAt: msTime(raw, "lastModifiedAt"),
		Visibility:     optString(raw, "visibility"),
		LifecycleState: optString(raw, "lifecycleState"),
		FetchedAt:      fetchedAt,
	}

	if rc, ok := raw["reshareContext"].(map[string]any); ok {
		if parent := getString(rc, "parent"); parent != "" {
			p.IsReshare = true
			p.ReshareParentURN = &parent
		}
	}

	p.MediaType = mediaType(raw)
	p.HasMedia = p.MediaType != ""
	p.PostType = postType(p)

	applySocial(p, social)
	return p, nil
}

// mediaType inspects the content block. Media URNs encode their kind:
// urn:li:video:..., urn:li:image:..., urn:li:article:....
func mediaType(raw map[string]any) string {
	content, ok := raw["content"].(map[string]any)
	if !ok {
		return ""
	}
	if _, ok := content["multiImage"]; ok {
		return "multiImage"
	}
	if _, ok := content["article"]; ok {
		return "article"
	}
	if media, ok := content["media"].(map[string]any); ok {
		urn := getString(media, "id")
		switch {
		case strings.Contains(urn, ":video:"):
			return "video"
		case strings.Contains(urn, ":image:"):
			return "image"
		case strings.Contains(urn, ":article"):
			return "article"
		}
		return "media"
	}
	if _, ok := content["poll"]; ok {
		return "poll"
	}
	return ""
}

func postType(p *domain.Post) string {
	switch {
	case p.IsReshare:
		return "reshare"
	case p.HasMedia:
		return p.MediaType
	default:
		return "text"
	}
}

func applySocial(p *domain.Post, social map[string]any) {
	if social == nil {
		return
	}
	if cs, ok := social["commentSummary"].(map[string]any); ok {
		p.CommentCount = intField(cs, "count")
		p.TopLevelCommentCount = intField(cs, "topLevelCount")
		if state := getString(cs, "commentsState"); state != "" {
			p.CommentsState = &state
		}
	}
	if rs, ok := social["reactionSummaries"].(map[string]any); ok {
		for kind, target := range reactionKeys {
			if summary, ok := rs[kind].(map[string]any); ok {
				*target(p) = intField(summary, "count")
			}
		}
	}
	p.TotalReactions = p.ReactionLike + p.ReactionCelebrate + p.ReactionSupport +
		p.ReactionLove + p.ReactionInsightful + p.ReactionFunny
}

func msTime(raw map[string]any, key string) *time.Time {
	ms, ok := toFloat(raw[key])
	if !ok || ms <= 0 {
		return nil
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t
}

func intField(raw map[string]any, key string) int64 {
	f, _ := toFloat(raw[key])
	return int64(f)
}
