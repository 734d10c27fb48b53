package sync

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
)

// geoStage enriches login IPs that have no city yet. Lookups fan out to
// a bounded worker pool; a single collector flushes results through
// staging merges so partial progress is durable even when later lookups
// fail.
type geoStage struct {
	s *Service
}

func (st *geoStage) Name() string    { return "geoip" }
func (st *geoStage) Mandatory() bool { return false }

func (st *geoStage) Run(ctx context.Context, runToken string) (*StageResult, error) {
	s := st.s
	ips, err := st.pendingIPs(ctx)
	if err != nil {
		return nil, err
	}
	result := &StageResult{}
	if len(ips) == 0 {
		return result, nil
	}

	staging, err := s.wh.CreateStaging(ctx, domain.GeoEnrichmentSchema, runToken)
	if err != nil {
		return nil, err
	}
	defer staging.Drop(ctx)

	// Single collector: staging loads and merges are not concurrent-safe
	// against each other, so all writes funnel through here.
	merge := &domain.MergeOutcome{}
	var batch [][]any
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := staging.Load(ctx, batch); err != nil {
			return err
		}
		out, err := s.wh.MergeUpdateOnly(ctx, staging, domain.UsersTable.Name)
		if err != nil {
			return err
		}
		merge.Matched += out.Matched
		merge.Inserted += out.Inserted
		merge.RowsAffected += out.RowsAffected
		result.Rows += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	var flushErr error
	lookupErr := st.lookupAll(ctx, ips, func(loc *domain.GeoLocation) error {
		batch = append(batch, loc.Values())
		if len(batch) >= s.cfg.GeoFlushSize {
			if err := flush(); err != nil {
				flushErr = err
				return err
			}
		}
		return nil
	})
	if flushErr != nil {
		return nil, flushErr
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if lookupErr != nil {
		// Rows already merged stay merged.
		result.Partial = true
		result.PartialReason = fmt.Sprintf("geolocation lookups stopped: %v", lookupErr)
	}
	result.Merge = merge
	return result, nil
}

// lookupAll resolves ips through a bounded worker pool, funneling each
// result into collect from a single goroutine. A collect error cancels
// the pool, so workers parked on the results channel always exit and no
// lookup outlives the call.
func (st *geoStage) lookupAll(ctx context.Context, ips []string, collect func(*domain.GeoLocation) error) error {
	s := st.s
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *domain.GeoLocation, s.cfg.GeoFlushSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.GeoWorkers)
	go func() {
		for _, ip := range ips {
			g.Go(func() error {
				loc, err := s.geo.Lookup(gctx, ip)
				if err != nil {
					if errors.Is(err, provider.ErrNoResult) {
						s.logger.Debug("no geolocation for ip", "ip", ip)
						return nil
					}
					return err
				}
				select {
				case results <- toGeoLocation(loc):
				case <-gctx.Done():
					return gctx.Err()
				}
				return nil
			})
		}
		g.Wait() //nolint:errcheck // collected below
		close(results)
	}()

	for loc := range results {
		if err := collect(loc); err != nil {
			return err
		}
	}
	return g.Wait()
}

// pendingIPs lists distinct login IPs still missing enrichment, capped
// per run to stay inside the free providers' goodwill.
func (st *geoStage) pendingIPs(ctx context.Context) ([]string, error) {
	rows, err := st.s.wh.DB().QueryContext(ctx, `
		SELECT DISTINCT last_login_ip
		FROM users
		WHERE last_login_ip IS NOT NULL
		  AND last_login_ip <> ''
		  AND last_login_city IS NULL
		LIMIT ?`, st.s.cfg.GeoMaxIPs)
	if err != nil {
		return nil, fmt.Errorf("list pending ips: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ips []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, fmt.Errorf("scan ip: %w", err)
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}

func toGeoLocation(r *provider.GeoResult) *domain.GeoLocation {
	return &domain.GeoLocation{
		IP:          r.IP,
		City:        r.City,
		Region:      r.Region,
		CountryName: r.CountryName,
		CountryCode: r.CountryCode,
		Source:      r.Source,
	}
}
