// Package runlog persists sync run history in a local SQLite database,
// separate from the analytical warehouse so run metadata survives
// warehouse rebuilds.
package runlog

import (
	"database/sql"
	"fmt"
)

// OpenSQLite opens the run log database with the pragmas tuned for a
// single-writer service: WAL journaling, a busy timeout instead of
// immediate lock errors, and foreign keys enforced.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping run log: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent stage recording.
	db.SetMaxOpenConns(1)
	return db, nil
}
