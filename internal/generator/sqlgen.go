package generator

import (
	"fmt"
	"strings"
)

// All identifier and literal splicing for generated SQL goes through this
// file so quoting is centralized instead of ad hoc per template branch.

// QuoteIdent renders a column name as a double-quoted SQL identifier,
// escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString renders a value as a single-quoted SQL string literal,
// escaping embedded single quotes.
func QuoteString(v string) string {
	return `'` + strings.ReplaceAll(v, `'`, `''`) + `'`
}

// selectQuery is a minimal builder for the statements the baseline emits.
// Expressions passed to it must already be rendered through QuoteIdent /
// QuoteString.
type selectQuery struct {
	columns []string
	where   string
	groupBy string
	orderBy string
	limit   int
}

func (q selectQuery) render() string {
	cols := "*"
	if len(q.columns) > 0 {
		cols = strings.Join(q.columns, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM df", cols)
	if q.where != "" {
		b.WriteString(" WHERE " + q.where)
	}
	if q.groupBy != "" {
		b.WriteString(" GROUP BY " + q.groupBy)
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY " + q.orderBy)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	return b.String()
}

func aggregate(fn, column, alias string) string {
	return fmt.Sprintf("%s(%s) AS %s", fn, QuoteIdent(column), QuoteIdent(alias))
}
