// Package warehouse manages the DuckDB analytical store: target tables,
// run-scoped staging areas, and the match-on-key merge engine.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/ddl"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// Warehouse wraps a DuckDB connection pool.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the DuckDB database at path. An empty path opens
// an in-memory database. A failure here is fatal to the whole run.
func Open(path string, logger *slog.Logger) (*Warehouse, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Warehouse{db: db, logger: logger}, nil
}

// NewFromDB wraps an existing DuckDB pool. Used by tests.
func NewFromDB(db *sql.DB, logger *slog.Logger) *Warehouse {
	return &Warehouse{db: db, logger: logger}
}

// Close releases the underlying pool.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// DB exposes the underlying pool for read-only queries by stages.
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// EnsureTables creates every target table that does not yet exist.
func (w *Warehouse) EnsureTables(ctx context.Context, schemas ...domain.TableSchema) error {
	for _, schema := range schemas {
		stmt, err := ddl.CreateTable(schema, true)
		if err != nil {
			return fmt.Errorf("build DDL for %s: %w", schema.Name, err)
		}
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", schema.Name, err)
		}
	}
	return nil
}
