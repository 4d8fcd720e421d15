package llm

import (
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain statement untouched",
			in:   "SELECT * FROM df",
			want: "SELECT * FROM df",
		},
		{
			name: "sql fence",
			in:   "```sql\nSELECT * FROM df\n```",
			want: "SELECT * FROM df",
		},
		{
			name: "uppercase fence",
			in:   "```SQL\nSELECT COUNT(*) FROM df\n```",
			want: "SELECT COUNT(*) FROM df",
		},
		{
			name: "bare fence",
			in:   "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "surrounding whitespace",
			in:   "  \nSELECT 1\n  ",
			want: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildQueryPrompt(t *testing.T) {
	prompt := buildQueryPrompt("- 'price' (type: double)", "What is the total price?")

	for _, want := range []string{
		"table named df",
		"- 'price' (type: double)",
		`User's Question: "What is the total price?"`,
		"single SQL SELECT",
		"DuckDB",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSuggestionsPrompt(t *testing.T) {
	prompt := buildSuggestionsPrompt("- 'price' (type: double)")

	if !strings.Contains(prompt, "JSON list of strings") {
		t.Error("prompt missing JSON list instruction")
	}
	if !strings.Contains(prompt, "- 'price' (type: double)") {
		t.Error("prompt missing schema")
	}
}
