package ddl

import (
	"fmt"
	"strings"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// CreateTable returns a CREATE TABLE statement for the schema. With
// ifNotExists set the statement is a no-op when the table already exists.
func CreateTable(schema domain.TableSchema, ifNotExists bool) (string, error) {
	if err := ValidateIdentifier(schema.Name); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(schema.Columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	colDefs := make([]string, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		if err := ValidateIdentifier(c.Name); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c.Name, err)
		}
		if err := ValidateColumnType(c.Type); err != nil {
			return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
		}
		colDefs = append(colDefs, fmt.Sprintf("%s %s", QuoteIdentifier(c.Name), c.Type))
	}

	keyword := "CREATE TABLE"
	if ifNotExists {
		keyword = "CREATE TABLE IF NOT EXISTS"
	}
	return fmt.Sprintf("%s %s (%s)", keyword, QuoteIdentifier(schema.Name),
		strings.Join(colDefs, ", ")), nil
}

// CreateStagingTable returns a CREATE OR REPLACE TABLE statement for a
// run-scoped staging table. CREATE OR REPLACE gives truncate-then-write
// semantics when a load is retried under the same name.
func CreateStagingTable(name string, schema domain.TableSchema) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid staging name: %w", err)
	}
	stmt, err := CreateTable(domain.TableSchema{Name: name, Key: schema.Key, Columns: schema.Columns}, false)
	if err != nil {
		return "", err
	}
	return strings.Replace(stmt, "CREATE TABLE", "CREATE OR REPLACE TABLE", 1), nil
}

// DropTable returns an idempotent DROP TABLE IF EXISTS statement.
func DropTable(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return "DROP TABLE IF EXISTS " + QuoteIdentifier(name), nil
}

// InsertInto returns a placeholder INSERT statement for one row of the
// named table in the given column order.
func InsertInto(name string, columns []string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	quoted := make([]string, len(columns))
	holes := make([]string, len(columns))
	for i, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		quoted[i] = QuoteIdentifier(c)
		holes[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", QuoteIdentifier(name),
		strings.Join(quoted, ", "), strings.Join(holes, ", ")), nil
}

// MergeUpdate returns the matched half of a merge: overwrite every listed
// update column of target rows whose key matches a staging row.
func MergeUpdate(target, staging, key string, updateColumns []string) (string, error) {
	if err := validateAll(target, staging, key); err != nil {
		return "", err
	}
	if len(updateColumns) == 0 {
		return "", fmt.Errorf("at least one update column is required")
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		sets[i] = fmt.Sprintf("%s = s.%s", QuoteIdentifier(c), QuoteIdentifier(c))
	}
	return fmt.Sprintf("UPDATE %s SET %s FROM %s AS s WHERE %s.%s = s.%s",
		QuoteIdentifier(target), strings.Join(sets, ", "), QuoteIdentifier(staging),
		QuoteIdentifier(target), QuoteIdentifier(key), QuoteIdentifier(key)), nil
}

// MergeInsert returns the not-matched half of a merge: insert staging rows
// whose key has no target match. Target columns absent from the staging
// shape default to NULL. No clause ever deletes target rows.
func MergeInsert(target, staging, key string, columns []string) (string, error) {
	if err := validateAll(target, staging, key); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}
	quoted := make([]string, len(columns))
	selected := make([]string, len(columns))
	for i, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		quoted[i] = QuoteIdentifier(c)
		selected[i] = "s." + QuoteIdentifier(c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s WHERE NOT EXISTS (SELECT 1 FROM %s AS t WHERE t.%s = s.%s)",
		QuoteIdentifier(target), strings.Join(quoted, ", "), strings.Join(selected, ", "),
		QuoteIdentifier(staging), QuoteIdentifier(target),
		QuoteIdentifier(key), QuoteIdentifier(key)), nil
}

// MergeMatchCount returns the query counting staging rows whose key already
// exists in the target.
func MergeMatchCount(target, staging, key string) (string, error) {
	if err := validateAll(target, staging, key); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s AS s WHERE EXISTS (SELECT 1 FROM %s AS t WHERE t.%s = s.%s)",
		QuoteIdentifier(staging), QuoteIdentifier(target),
		QuoteIdentifier(key), QuoteIdentifier(key)), nil
}

func validateAll(target, staging, key string) error {
	if err := ValidateIdentifier(target); err != nil {
		return fmt.Errorf("invalid target name: %w", err)
	}
	if err := ValidateIdentifier(staging); err != nil {
		return fmt.Errorf("invalid staging name: %w", err)
	}
	if err := ValidateIdentifier(key); err != nil {
		return fmt.Errorf("invalid key column: %w", err)
	}
	return nil
}
