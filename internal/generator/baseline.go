package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/nlq-agent/backend/internal/dataset"
)

type queryType string

const (
	queryTotal   queryType = "total"
	queryCount   queryType = "count"
	queryAverage queryType = "average"
	queryMax     queryType = "max"
	queryMin     queryType = "min"
	queryFilter  queryType = "filter"
	queryGroupBy queryType = "groupby"
)

type template struct {
	queryType queryType
	keywords  []string
}

// Registration order is the tie-break: the first template with a keyword hit
// wins, so "total sales by region" is a total, not a groupby.
var templates = []template{
	{queryTotal, []string{"total", "sum", "overall"}},
	{queryCount, []string{"how many", "count", "number of"}},
	{queryAverage, []string{"average", "mean", "avg"}},
	{queryMax, []string{"maximum", "max", "highest", "largest", "most"}},
	{queryMin, []string{"minimum", "min", "lowest", "smallest", "least"}},
	{queryFilter, []string{"show", "list", "display", "get", "find"}},
	{queryGroupBy, []string{"by", "per", "each", "group"}},
}

var groupColumnPriority = []string{"department", "category", "region", "payment_method", "salesperson"}

// Baseline is the template-based query generator: keyword matching against a
// fixed set of query types, no model call. It abstains (returns a sentinel
// error) when it cannot detect a query type or any referenced column.
type Baseline struct{}

func NewBaseline() *Baseline {
	return &Baseline{}
}

func (b *Baseline) Kind() Kind {
	return KindBaseline
}

func (b *Baseline) Generate(_ context.Context, question string, ds *dataset.Dataset) (string, error) {
	q := strings.ToLower(question)

	qt, ok := detectQueryType(q)
	if !ok {
		return "", ErrNoQueryType
	}

	columns := ds.MatchColumns(q)
	if len(columns) == 0 {
		return "", ErrNoColumns
	}

	switch qt {
	case queryTotal:
		return b.totalQuery(columns, ds), nil
	case queryCount:
		return b.countQuery(columns, q), nil
	case queryAverage:
		return b.averageQuery(columns, ds), nil
	case queryMax:
		return b.extremeQuery(columns, ds, "DESC"), nil
	case queryMin:
		return b.extremeQuery(columns, ds, "ASC"), nil
	case queryFilter:
		return b.filterQuery(columns, q), nil
	case queryGroupBy:
		return b.groupByQuery(columns, q, ds), nil
	}

	return selectQuery{limit: 5}.render(), nil
}

func detectQueryType(question string) (queryType, bool) {
	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(question, kw) {
				return t.queryType, true
			}
		}
	}
	return "", false
}

// numericOf filters matched columns down to numeric ones.
func numericOf(ds *dataset.Dataset, columns []string) []string {
	var numeric []string
	for _, c := range columns {
		if ds.ColumnType(c).IsNumeric() {
			numeric = append(numeric, c)
		}
	}
	return numeric
}

func (b *Baseline) totalQuery(columns []string, ds *dataset.Dataset) string {
	numeric := numericOf(ds, columns)
	if len(numeric) == 0 {
		numeric = ds.NumericColumns()
	}

	switch {
	case len(numeric) == 1:
		return selectQuery{columns: []string{aggregate("SUM", numeric[0], "Total")}}.render()
	case len(numeric) >= 2:
		// Price x quantity heuristic: missing quantities count as 1.
		expr := fmt.Sprintf("SUM(%s * COALESCE(%s, 1)) AS %s",
			QuoteIdent(numeric[0]), QuoteIdent(numeric[1]), QuoteIdent("Total Revenue"))
		return selectQuery{columns: []string{expr}}.render()
	default:
		return selectQuery{columns: []string{`COUNT(*) AS ` + QuoteIdent("Total")}}.render()
	}
}

func (b *Baseline) countQuery(columns []string, question string) string {
	if strings.Contains(question, "department") || strings.Contains(question, "category") || strings.Contains(question, "region") {
		for _, c := range columns {
			switch strings.ToLower(c) {
			case "department", "category", "region":
				return selectQuery{
					columns: []string{QuoteIdent(c), `COUNT(*) AS ` + QuoteIdent("Count")},
					groupBy: QuoteIdent(c),
				}.render()
			}
		}
	}

	return selectQuery{columns: []string{`COUNT(*) AS ` + QuoteIdent("Count")}}.render()
}

func (b *Baseline) averageQuery(columns []string, ds *dataset.Dataset) string {
	numeric := numericOf(ds, columns)
	if len(numeric) == 0 {
		numeric = ds.NumericColumns()
	}

	if len(numeric) > 0 {
		return selectQuery{
			columns: []string{aggregate("AVG", numeric[0], "Average "+numeric[0])},
		}.render()
	}

	return selectQuery{limit: 1}.render()
}

func (b *Baseline) extremeQuery(columns []string, ds *dataset.Dataset, direction string) string {
	numeric := numericOf(ds, columns)
	if len(numeric) > 0 {
		return selectQuery{
			orderBy: QuoteIdent(numeric[0]) + " " + direction,
			limit:   1,
		}.render()
	}

	return selectQuery{limit: 1}.render()
}

func (b *Baseline) filterQuery(columns []string, question string) string {
	if strings.Contains(question, "greater than") || strings.Contains(question, ">") {
		if value, ok := firstInteger(question); ok && len(columns) > 0 {
			return selectQuery{where: fmt.Sprintf("%s > %d", QuoteIdent(columns[0]), value)}.render()
		}
	}

	if strings.Contains(question, "less than") || strings.Contains(question, "<") {
		if value, ok := firstInteger(question); ok && len(columns) > 0 {
			return selectQuery{where: fmt.Sprintf("%s < %d", QuoteIdent(columns[0]), value)}.render()
		}
	}

	switch {
	case strings.Contains(question, "completed"):
		return selectQuery{where: QuoteIdent("status") + " = " + QuoteString("Completed")}.render()
	case strings.Contains(question, "failed"):
		return selectQuery{where: QuoteIdent("status") + " = " + QuoteString("Failed")}.render()
	case strings.Contains(question, "engineering"):
		return selectQuery{where: QuoteIdent("department") + " = " + QuoteString("Engineering")}.render()
	case strings.Contains(question, "electronics"):
		return selectQuery{where: QuoteIdent("category") + " = " + QuoteString("Electronics")}.render()
	}

	return selectQuery{limit: 10}.render()
}

func (b *Baseline) groupByQuery(columns []string, question string, ds *dataset.Dataset) string {
	groupCol := ""
	for _, c := range columns {
		lower := strings.ToLower(c)
		for _, p := range groupColumnPriority {
			if lower == p {
				groupCol = c
				break
			}
		}
		if groupCol != "" {
			break
		}
	}
	if groupCol == "" {
		if len(columns) > 0 {
			groupCol = columns[0]
		} else if len(ds.Columns) > 0 {
			groupCol = ds.Columns[0].Name
		}
	}

	if strings.Contains(question, "average") || strings.Contains(question, "mean") {
		if numeric := numericOf(ds, columns); len(numeric) > 0 {
			return selectQuery{
				columns: []string{QuoteIdent(groupCol), aggregate("AVG", numeric[0], "Average "+numeric[0])},
				groupBy: QuoteIdent(groupCol),
			}.render()
		}
	}

	if strings.Contains(question, "total") || strings.Contains(question, "sum") {
		if numeric := numericOf(ds, columns); len(numeric) > 0 {
			return selectQuery{
				columns: []string{QuoteIdent(groupCol), aggregate("SUM", numeric[0], "Total "+numeric[0])},
				groupBy: QuoteIdent(groupCol),
			}.render()
		}
	}

	return selectQuery{
		columns: []string{QuoteIdent(groupCol), `COUNT(*) AS ` + QuoteIdent("Count")},
		groupBy: QuoteIdent(groupCol),
	}.render()
}

// firstInteger extracts the first cardinal-number token from the question,
// using the prose tagger so "over 1,000" and bare digits both resolve.
func firstInteger(question string) (int, bool) {
	doc, err := prose.NewDocument(question,
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err == nil {
		for _, tok := range doc.Tokens() {
			if tok.Tag != "CD" {
				continue
			}
			cleaned := strings.ReplaceAll(tok.Text, ",", "")
			if n, err := strconv.Atoi(cleaned); err == nil {
				return n, true
			}
		}
	}

	// Tagger unavailable or found nothing: fall back to a digit scan.
	for _, field := range strings.Fields(question) {
		trimmed := strings.Trim(field, ".,?!")
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
	}
	return 0, false
}
