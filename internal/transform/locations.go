package transform

import (
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// LoginEvent maps a Descope audit record to a login location row. The
// actor and the event time are mandatory; geo and remoteAddress are
// best-effort fields the audit pipeline sometimes omits.
func LoginEvent(raw map[string]any) (*domain.UserLocation, error) {
	id := getString(raw, "userId")
	if id == "" {
		return nil, domain.ErrMalformed("userId", "missing or empty")
	}
	ms, ok := toFloat(raw["occurred"])
	if !ok || ms <= 0 {
		return nil, domain.ErrMalformed("occurred", "missing or not a timestamp")
	}

	return &domain.UserLocation{
		UserID:    id,
		LoginTime: time.UnixMilli(int64(ms)).UTC(),
		Country:   getString(raw, "geo"),
		IP:        getString(raw, "remoteAddress"),
	}, nil
}
