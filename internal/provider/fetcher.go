package provider

import (
	"context"
	"iter"
	"log/slog"
	"strconv"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
)

// RawRecord is a provider record before transformation.
type RawRecord = map[string]any

// FetchRequest describes one page request.
type FetchRequest struct {
	Page      int
	PageToken string
	PageSize  int
	Cursor    *time.Time
}

// Page is one page of provider records. Total, when the provider reports
// it, lets the fetcher stop without requesting a trailing empty page.
// Token-paged providers set Tokened and carry the continuation in
// NextToken; an empty NextToken on a Tokened page means the sequence is
// exhausted, even when the page itself is full. Page-number providers
// leave both zero.
type Page struct {
	Records   []RawRecord
	Total     int
	Tokened   bool
	NextToken string
}

// Pager fetches a single page from a provider.
type Pager interface {
	Name() string
	FetchPage(ctx context.Context, req FetchRequest) (*Page, error)
}

// FetchResult summarizes a completed fetch: how far it got and why it
// stopped.
type FetchResult struct {
	Pages   int
	Records int
	Partial bool
	Reason  string
	Err     error
}

// Fetcher drives a Pager through the pagination protocol under rate-limit
// governance. One Fetcher serves one fetch; Records may be iterated once.
type Fetcher struct {
	pager      Pager
	gov        *ratelimit.Governor
	pageSize   int
	maxPages   int
	maxRetries int
	logger     *slog.Logger

	result FetchResult
}

func NewFetcher(pager Pager, gov *ratelimit.Governor, pageSize, maxPages, maxRetries int, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		pager:      pager,
		gov:        gov,
		pageSize:   pageSize,
		maxPages:   maxPages,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Records returns a one-shot sequence of provider records starting at
// cursor. Pages are requested lazily as the consumer advances. Stop
// conditions, checked in order after each page: the governor is hard
// limited, the page is empty, a token-paged provider returns no next
// token, the page is short, the provider-reported total is reached, the
// page cap is hit. Result reports how the fetch ended once iteration
// finishes.
func (f *Fetcher) Records(ctx context.Context, cursor *time.Time) iter.Seq[RawRecord] {
	return func(yield func(RawRecord) bool) {
		page := 1
		token := ""
		fetched := 0
		for {
			if f.maxPages > 0 && page > f.maxPages {
				f.partial("max pages reached")
				return
			}
			if f.gov.HardLimited() {
				f.partial("daily rate limit reached")
				return
			}

			p, err := f.fetchWithRetry(ctx, FetchRequest{
				Page:      page,
				PageToken: token,
				PageSize:  f.pageSize,
				Cursor:    cursor,
			})
			if err != nil {
				if domain.IsHardLimit(err) {
					f.partial("daily rate limit reached")
					return
				}
				if fetched > 0 {
					f.logger.Warn("fetch stopped mid-stream",
						"provider", f.pager.Name(), "page", page, "error", err)
					f.partial("fetch failed after " + strconv.Itoa(fetched) + " records")
					f.result.Err = err
					return
				}
				f.result.Err = err
				return
			}

			f.result.Pages++
			for _, rec := range p.Records {
				fetched++
				f.result.Records++
				if !yield(rec) {
					return
				}
			}

			switch {
			case len(p.Records) == 0:
				return
			case p.Tokened && p.NextToken == "":
				return
			case len(p.Records) < f.pageSize:
				return
			case p.Total > 0 && fetched >= p.Total:
				return
			}

			page++
			token = p.NextToken
		}
	}
}

// Result is valid once the Records sequence has finished.
func (f *Fetcher) Result() *FetchResult {
	return &f.result
}

func (f *Fetcher) partial(reason string) {
	f.result.Partial = true
	f.result.Reason = reason
}

// fetchWithRetry paces through the governor and retries transient and
// soft-limit failures with exponential backoff. Hard limits and
// non-retryable errors return immediately.
func (f *Fetcher) fetchWithRetry(ctx context.Context, req FetchRequest) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.gov.Backoff(attempt)
			f.logger.Info("retrying page fetch",
				"provider", f.pager.Name(), "page", req.Page, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := f.gov.Wait(ctx); err != nil {
			return nil, err
		}

		p, err := f.pager.FetchPage(ctx, req)
		if err == nil {
			f.gov.ObserveSuccess()
			return p, nil
		}
		f.gov.Observe(err)
		if domain.IsHardLimit(err) {
			return nil, err
		}
		if !domain.IsTransient(err) && !domain.IsSoftLimit(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
