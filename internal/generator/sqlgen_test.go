package generator

import "testing"

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"price", `"price"`},
		{"Total Revenue", `"Total Revenue"`},
		{`odd"name`, `"odd""name"`},
	}

	for _, tt := range tests {
		if got := QuoteIdent(tt.in); got != tt.want {
			t.Errorf("QuoteIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Completed", `'Completed'`},
		{"O'Brien", `'O''Brien'`},
	}

	for _, tt := range tests {
		if got := QuoteString(tt.in); got != tt.want {
			t.Errorf("QuoteString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSelectQueryRender(t *testing.T) {
	tests := []struct {
		name string
		q    selectQuery
		want string
	}{
		{
			name: "bare",
			q:    selectQuery{},
			want: "SELECT * FROM df",
		},
		{
			name: "all clauses",
			q: selectQuery{
				columns: []string{`"region"`, `COUNT(*) AS "Count"`},
				where:   `"price" > 10`,
				groupBy: `"region"`,
				orderBy: `"region" ASC`,
				limit:   5,
			},
			want: `SELECT "region", COUNT(*) AS "Count" FROM df WHERE "price" > 10 GROUP BY "region" ORDER BY "region" ASC LIMIT 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.render(); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}
