package evaluation

import (
	"os"
	"path/filepath"
	"testing"
)

const groundTruthJSON = `{
  "test_cases": [
    {"id": 1, "query": "What is the total price?", "dataset": "sales.csv", "complexity": "simple", "category": "aggregation"},
    {"id": 2, "query": "Show failed payments", "dataset": "payments.csv", "complexity": "medium", "category": "filtering"}
  ]
}`

const groundTruthYAML = `test_cases:
  - id: 1
    query: What is the total price?
    dataset: sales.csv
    complexity: simple
    category: aggregation
  - id: 2
    query: Show failed payments
    dataset: payments.csv
    complexity: medium
    category: filtering
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGroundTruth(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"json", "ground_truth.json", groundTruthJSON},
		{"yaml", "ground_truth.yaml", groundTruthYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt, err := LoadGroundTruth(writeTemp(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("LoadGroundTruth error: %v", err)
			}
			if len(gt.TestCases) != 2 {
				t.Fatalf("len(TestCases) = %d, want 2", len(gt.TestCases))
			}
			tc := gt.TestCases[1]
			if tc.ID != 2 || tc.Query != "Show failed payments" || tc.Dataset != "payments.csv" ||
				tc.Complexity != "medium" || tc.Category != "filtering" {
				t.Errorf("TestCases[1] = %+v", tc)
			}
		})
	}
}

func TestLoadGroundTruthErrors(t *testing.T) {
	if _, err := LoadGroundTruth(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := writeTemp(t, "empty.json", `{"test_cases": []}`)
	if _, err := LoadGroundTruth(empty); err == nil {
		t.Error("expected error for empty suite")
	}

	malformed := writeTemp(t, "bad.json", `{`)
	if _, err := LoadGroundTruth(malformed); err == nil {
		t.Error("expected error for malformed document")
	}
}
