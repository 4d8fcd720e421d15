// Package sandbox executes generated SQL against a dataset loaded into an
// in-memory DuckDB instance. The statement sees exactly one table, df, and
// nothing else; execution is bounded by a context timeout. This is the
// correctness-critical boundary of the system: the SQL comes from an
// untrusted generator and every failure mode must be contained per call.
package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nlq-agent/backend/internal/dataset"
)

// ErrNoResult marks a statement that executed but produced no result set,
// distinct from a genuine SQL error.
var ErrNoResult = errors.New("no result set produced by generated code")

// Result is the tabular outcome of a successful execution, capped at the
// sandbox's preview limit.
type Result struct {
	Columns   []string
	Rows      [][]string
	RowCount  int
	Truncated bool
}

// Preview renders the result as aligned text for logs and stored records.
func (r *Result) Preview() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, " | "))
	for _, row := range r.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	return b.String()
}

type Sandbox struct {
	timeout     time.Duration
	previewRows int
}

func New(timeout time.Duration, previewRows int) *Sandbox {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if previewRows == 0 {
		previewRows = 5
	}
	return &Sandbox{timeout: timeout, previewRows: previewRows}
}

// Execute runs code against ds. It returns (result, nil) on success and
// (nil, err) when the statement fails or yields no result set. Errors are
// values to record, never panics; one bad statement must not abort a run.
func (s *Sandbox) Execute(ctx context.Context, code string, ds *dataset.Dataset) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open execution database: %w", err)
	}
	defer db.Close()

	if err := loadTable(ctx, db, ds); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	rows, err := db.QueryContext(ctx, strings.TrimSuffix(strings.TrimSpace(code), ";"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, ErrNoResult
	}

	result := &Result{Columns: columns}

	values := make([]any, len(columns))
	scanners := make([]any, len(columns))
	for i := range values {
		scanners[i] = &values[i]
	}

	for rows.Next() {
		result.RowCount++
		if result.RowCount > s.previewRows {
			result.Truncated = true
			continue
		}
		if err := rows.Scan(scanners...); err != nil {
			return nil, err
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// loadTable creates the df table with the dataset's inferred column types
// and inserts every row, mapping empty cells to NULL.
func loadTable(ctx context.Context, db *sql.DB, ds *dataset.Dataset) error {
	defs := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		defs[i] = quoteIdent(c.Name) + " " + duckdbType(c.Type)
	}

	createStmt := fmt.Sprintf("CREATE TABLE df (%s)", strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ds.Columns)), ", ")
	insertStmt := fmt.Sprintf("INSERT INTO df VALUES (%s)", placeholders)

	stmt, err := db.PrepareContext(ctx, insertStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range ds.Rows {
		args := make([]any, len(ds.Columns))
		for i, c := range ds.Columns {
			if i >= len(row) {
				args[i] = nil
				continue
			}
			args[i], err = convertValue(row[i], c.Type)
			if err != nil {
				return fmt.Errorf("column %s: %w", c.Name, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func duckdbType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeDouble:
		return "DOUBLE"
	case dataset.TypeBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func convertValue(raw string, t dataset.ColumnType) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	switch t {
	case dataset.TypeInteger:
		return strconv.ParseInt(v, 10, 64)
	case dataset.TypeDouble:
		return strconv.ParseFloat(v, 64)
	case dataset.TypeBoolean:
		return strconv.ParseBool(strings.ToLower(v))
	default:
		return v, nil
	}
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case time.Time:
		return value.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}
