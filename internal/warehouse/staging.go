package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nikhil-at-pieces/descope-sync/internal/ddl"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Staging is a run-scoped ephemeral table. It is owned exclusively by the
// run that created it and must be dropped when the merge finishes,
// regardless of outcome.
type Staging struct {
	Name   string
	Schema domain.TableSchema

	db     *sql.DB
	logger *slog.Logger
}

// CreateStaging creates a staging table named {table}_staging_{runToken}.
// The run token makes the name unique per run, so concurrent runs never
// share staging state. An existing table of the same name (a crashed
// earlier attempt) is replaced.
func (w *Warehouse) CreateStaging(ctx context.Context, schema domain.TableSchema, runToken string) (*Staging, error) {
	name := fmt.Sprintf("%s_staging_%s", schema.Name, runToken)
	stmt, err := ddl.CreateStagingTable(name, schema)
	if err != nil {
		return nil, fmt.Errorf("build staging DDL: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create staging %s: %w", name, err)
	}
	return &Staging{Name: name, Schema: schema, db: w.db, logger: w.logger}, nil
}

// Load writes the batch into the staging table with truncate-then-write
// semantics: a retried load never appends to a previous attempt.
func (s *Staging) Load(ctx context.Context, rows [][]any) error {
	insert, err := ddl.InsertInto(s.Name, s.Schema.ColumnNames())
	if err != nil {
		return fmt.Errorf("build staging insert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging load: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+ddl.QuoteIdentifier(s.Name)); err != nil {
		return fmt.Errorf("truncate staging %s: %w", s.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare staging insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for i, row := range rows {
		if len(row) != len(s.Schema.Columns) {
			return fmt.Errorf("staging row %d has %d values, want %d", i, len(row), len(s.Schema.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert staging row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging load: %w", err)
	}
	return nil
}

// LoadFromQuery populates the staging table from a SELECT over warehouse
// state, replacing any previous contents. Used by derived stages that
// compute rows inside the warehouse instead of fetching them.
func (s *Staging) LoadFromQuery(ctx context.Context, selectSQL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging load: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+ddl.QuoteIdentifier(s.Name)); err != nil {
		return fmt.Errorf("truncate staging %s: %w", s.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO "+ddl.QuoteIdentifier(s.Name)+" "+selectSQL); err != nil {
		return fmt.Errorf("populate staging %s: %w", s.Name, err)
	}
	return tx.Commit()
}

// Count returns the number of rows currently staged.
func (s *Staging) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ddl.QuoteIdentifier(s.Name)).Scan(&n)
	return n, err
}

// Drop removes the staging table. Idempotent: dropping an already-dropped
// staging area is a no-op. Errors are logged, not returned, because Drop
// runs in deferred cleanup paths.
func (s *Staging) Drop(ctx context.Context) {
	stmt, err := ddl.DropTable(s.Name)
	if err != nil {
		s.logger.Warn("invalid staging name on drop", "staging", s.Name, "error", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		s.logger.Warn("failed to drop staging table", "staging", s.Name, "error", err)
	}
}
