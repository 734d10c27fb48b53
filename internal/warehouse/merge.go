package warehouse

import (
	"context"
	"fmt"

	"github.com/nikhil-at-pieces/descope-sync/internal/ddl"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Merge applies the staged rows to the target table in a single
// transaction: rows whose key already exists are updated, all others are
// inserted. The target never loses rows. updateColumns lists the non-key
// columns rewritten on match; columns the staging table lacks are left
// untouched on update and default to NULL on insert.
func (w *Warehouse) Merge(ctx context.Context, st *Staging, target string) (*domain.MergeOutcome, error) {
	key := st.Schema.Key
	columns := st.Schema.ColumnNames()
	updateColumns := st.Schema.UpdateColumns()

	matchCount, err := ddl.MergeMatchCount(target, st.Name, key)
	if err != nil {
		return nil, fmt.Errorf("build match count: %w", err)
	}
	updateStmt, err := ddl.MergeUpdate(target, st.Name, key, updateColumns)
	if err != nil {
		return nil, fmt.Errorf("build merge update: %w", err)
	}
	insertStmt, err := ddl.MergeInsert(target, st.Name, key, columns)
	if err != nil {
		return nil, fmt.Errorf("build merge insert: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var matched int64
	if err := tx.QueryRowContext(ctx, matchCount).Scan(&matched); err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}

	if matched > 0 && len(updateColumns) > 0 {
		if _, err := tx.ExecContext(ctx, updateStmt); err != nil {
			return nil, fmt.Errorf("merge update %s: %w", target, err)
		}
	}

	res, err := tx.ExecContext(ctx, insertStmt)
	if err != nil {
		return nil, fmt.Errorf("merge insert %s: %w", target, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("merge insert rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	outcome := &domain.MergeOutcome{
		Matched:      matched,
		Inserted:     inserted,
		RowsAffected: matched + inserted,
	}
	w.logger.Info("merge complete",
		"target", target,
		"matched", outcome.Matched,
		"inserted", outcome.Inserted,
	)
	return outcome, nil
}

// MergeUpdateOnly applies staged rows to matching target rows and drops
// the rest. Used when unmatched staged rows must not become target rows:
// enrichment keyed off a non-primary column, or events that reference
// keys the target no longer holds.
func (w *Warehouse) MergeUpdateOnly(ctx context.Context, st *Staging, target string) (*domain.MergeOutcome, error) {
	key := st.Schema.Key
	updateColumns := st.Schema.UpdateColumns()

	matchCount, err := ddl.MergeMatchCount(target, st.Name, key)
	if err != nil {
		return nil, fmt.Errorf("build match count: %w", err)
	}
	updateStmt, err := ddl.MergeUpdate(target, st.Name, key, updateColumns)
	if err != nil {
		return nil, fmt.Errorf("build merge update: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var matched int64
	if err := tx.QueryRowContext(ctx, matchCount).Scan(&matched); err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	if matched > 0 {
		if _, err := tx.ExecContext(ctx, updateStmt); err != nil {
			return nil, fmt.Errorf("merge update %s: %w", target, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	w.logger.Info("merge complete", "target", target, "matched", matched, "inserted", 0)
	return &domain.MergeOutcome{Matched: matched, RowsAffected: matched}, nil
}
