package sync

import (
	"context"
	"fmt"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
	"github.com/nikhil-at-pieces/descope-sync/internal/transform"
)

// usersStage syncs identity records incrementally. The cursor is the
// greatest created_time already in the warehouse; only users modified at
// or after it are fetched.
type usersStage struct {
	s *Service
}

func (st *usersStage) Name() string    { return "users" }
func (st *usersStage) Mandatory() bool { return true }

func (st *usersStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	cursor := s.wh.MaxWatermark(ctx, "users", "created_time")

	gov := ratelimit.New("descope", s.cfg.RequestRate, s.logger)
	fetcher := provider.NewFetcher(s.descope.Users(), gov,
		s.cfg.Users.PageSize, s.cfg.Users.MaxPages, s.cfg.MaxRetries, s.logger)

	var rows [][]any
	var malformed int
	for raw := range fetcher.Records(ctx, cursor) {
		u, err := transform.User(raw)
		if err != nil {
			malformed++
			s.logger.Warn("dropping malformed user record", "error", err)
			continue
		}
		rows = append(rows, u.Values())
	}
	res := fetcher.Result()
	if res.Err != nil && len(rows) == 0 {
		return nil, fmt.Errorf("fetch users: %w", res.Err)
	}
	if malformed > 0 {
		s.logger.Warn("malformed user records dropped", "count", malformed)
	}

	result := &StageResult{
		Rows:          int64(len(rows)),
		Partial:       res.Partial,
		PartialReason: res.Reason,
	}
	if len(rows) == 0 {
		return result, nil
	}

	staging, err := s.wh.CreateStaging(ctx, domain.UserSyncSchema, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	if err := staging.Load(ctx, rows); err != nil {
		return nil, err
	}
	outcome, err := s.wh.Merge(ctx, staging, domain.UsersTable.Name)
	if err != nil {
		return nil, err
	}
	result.Merge = outcome
	return result, nil
}
