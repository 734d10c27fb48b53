// Package sync orchestrates the ingestion pipeline: ordered stages that
// fetch, transform, stage, and merge provider data into the warehouse.
package sync

import (
	"context"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// StageResult reports what a stage accomplished. Partial means the
// stage merged what it had but stopped fetching early; the merged rows
// are durable and the next run resumes from the advanced cursor.
type StageResult struct {
	Rows          int64
	Merge         *domain.MergeOutcome
	Partial       bool
	PartialReason string
}

// Stage is one unit of the pipeline. Mandatory stages gate overall run
// success; optional stages fail in isolation.
type Stage interface {
	Name() string
	Mandatory() bool
	Run(ctx context.Context, runToken string) (*StageResult, error)
}
