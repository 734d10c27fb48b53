package warehouse

import (
	"context"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/ddl"
)

// MaxWatermark returns the maximum value of the watermark column in the
// target table, or nil when the table is empty, missing, or the query
// fails. A nil cursor triggers a full load; failure here degrades, it
// never aborts the stage.
//
// The cursor is read once at the start of a stage and never re-read
// mid-stage.
func (w *Warehouse) MaxWatermark(ctx context.Context, table, column string) *time.Time {
	if err := ddl.ValidateIdentifier(table); err != nil {
		w.logger.Warn("invalid watermark table, falling back to full load", "table", table, "error", err)
		return nil
	}
	if err := ddl.ValidateIdentifier(column); err != nil {
		w.logger.Warn("invalid watermark column, falling back to full load", "column", column, "error", err)
		return nil
	}

	query := "SELECT MAX(" + ddl.QuoteIdentifier(column) + ") FROM " + ddl.QuoteIdentifier(table)
	var max *time.Time
	if err := w.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		w.logger.Warn("could not read watermark, falling back to full load",
			"table", table, "column", column, "error", err)
		return nil
	}
	if max == nil {
		return nil
	}
	utc := max.UTC()
	return &utc
}
