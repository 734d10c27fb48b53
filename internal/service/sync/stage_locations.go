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

// locationsStage derives each user's most recent login from the audit
// trail. The audit API retains a bounded window, so the stage always
// reads the full window and lets the merge discard what is already
// current.
type locationsStage struct {
	s *Service
}

func (st *locationsStage) Name() string    { return "locations" }
func (st *locationsStage) Mandatory() bool { return false }

func (st *locationsStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	since := time.Now().UTC().Add(-s.cfg.AuditWindow)

	gov := ratelimit.New("descope", s.cfg.RequestRate, s.logger)
	fetcher := provider.NewFetcher(s.descope.Audits(since), gov,
		s.cfg.Locations.PageSize, s.cfg.Locations.MaxPages, s.cfg.MaxRetries, s.logger)

	var events []*domain.UserLocation
	for raw := range fetcher.Records(ctx, nil) {
		ev, err := transform.LoginEvent(raw)
		if err != nil {
			s.logger.Warn("dropping malformed audit record", "error", err)
			continue
		}
		events = append(events, ev)
	}
	res := fetcher.Result()
	if res.Err != nil && len(events) == 0 {
		return nil, fmt.Errorf("fetch login audits: %w", res.Err)
	}

	latest := transform.LatestByKey(events,
		func(e *domain.UserLocation) string { return e.UserID },
		func(e *domain.UserLocation) time.Time { return e.LoginTime },
	)

	result := &StageResult{
		Rows:          int64(len(latest)),
		Partial:       res.Partial,
		PartialReason: res.Reason,
	}
	if len(latest) == 0 {
		return result, nil
	}

	rows := make([][]any, 0, len(latest))
	for _, e := range latest {
		rows = append(rows, e.Values())
	}

	staging, err := s.wh.CreateStaging(ctx, domain.UserLocationSchema, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.Load(ctx, rows); err != nil {
		return nil, err
	}
	// Update-only: an audit user ID with no matching user row is stale,
	// usually a deleted account, and the incremental identity sync would
	// never backfill a row inserted for it.
	outcome, err := s.wh.MergeUpdateOnly(ctx, staging, domain.UsersTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
