package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/sandbox"
)

const evalSalesCSV = `product,price,quantity
Laptop,10,2
Mouse,5,3
`

func newTestEvaluator(t *testing.T, groundTruth string) *Evaluator {
	t.Helper()

	dir := t.TempDir()
	datasetsDir := filepath.Join(dir, "test_datasets")
	if err := os.MkdirAll(datasetsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(datasetsDir, "sales.csv"), []byte(evalSalesCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	gtPath := filepath.Join(dir, "ground_truth.json")
	if err := os.WriteFile(gtPath, []byte(groundTruth), 0o644); err != nil {
		t.Fatal(err)
	}

	return NewEvaluator(Config{
		Store:           dataset.NewStore(datasetsDir),
		Sandbox:         sandbox.New(10*time.Second, 5),
		Generators:      []generator.Generator{generator.NewBaseline()},
		GroundTruthPath: gtPath,
		ResultsDir:      filepath.Join(dir, "results"),
		TargetAccuracy:  90.0,
	})
}

func TestRunFullEvaluationBaseline(t *testing.T) {
	gt := `{
	  "test_cases": [
	    {"id": 1, "query": "What is the total price and quantity?", "dataset": "sales.csv", "complexity": "complex", "category": "aggregation"},
	    {"id": 2, "query": "tell me something interesting", "dataset": "sales.csv", "complexity": "simple", "category": "other"},
	    {"id": 3, "query": "How many products are there?", "dataset": "sales.csv", "complexity": "simple", "category": "counting"}
	  ]
	}`

	e := newTestEvaluator(t, gt)

	var progressCalls int
	records, err := e.RunFullEvaluation(context.Background(), generator.KindBaseline, func(index, total int, rec Record) {
		progressCalls++
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatalf("RunFullEvaluation error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if progressCalls != 3 {
		t.Errorf("progress fired %d times, want 3", progressCalls)
	}

	// Case 1: revenue heuristic, 10*2 + 5*3 = 35.
	if !records[0].ExecutionSuccess {
		t.Fatalf("case 1 failed: gen=%q exec=%q", records[0].GenerationError, records[0].ExecutionError)
	}
	if records[0].ResultPreview != "Total Revenue\n35" {
		t.Errorf("case 1 preview = %q", records[0].ResultPreview)
	}

	// Case 2: no keyword hit, recorded as a generation failure and skipped.
	if records[1].ExecutionSuccess {
		t.Error("case 2 must not succeed")
	}
	if records[1].GenerationError == "" {
		t.Error("case 2 must carry a generation error")
	}
	if records[1].GeneratedCode != "" || records[1].ExecutionError != "" {
		t.Errorf("case 2 must not execute: %+v", records[1])
	}

	// Case 3: the run continues past a failure.
	if !records[2].ExecutionSuccess {
		t.Errorf("case 3 failed: gen=%q exec=%q", records[2].GenerationError, records[2].ExecutionError)
	}

	m := CalculateMetrics(records, 90.0)
	if m.Successful != 2 || m.Failed != 1 {
		t.Errorf("metrics = %d/%d, want 2/1", m.Successful, m.Failed)
	}
}

// A progress callback cancelling the context stops the run before the next
// case, so a streaming consumer that goes away does not keep a run alive.
func TestRunFullEvaluationStopsOnCancel(t *testing.T) {
	gt := `{
	  "test_cases": [
	    {"id": 1, "query": "What is the total price?", "dataset": "sales.csv", "complexity": "simple", "category": "aggregation"},
	    {"id": 2, "query": "How many products are there?", "dataset": "sales.csv", "complexity": "simple", "category": "counting"},
	    {"id": 3, "query": "What is the average price?", "dataset": "sales.csv", "complexity": "simple", "category": "aggregation"}
	  ]
	}`

	e := newTestEvaluator(t, gt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var progressCalls int
	_, err := e.RunFullEvaluation(ctx, generator.KindBaseline, func(index, total int, rec Record) {
		progressCalls++
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunFullEvaluation error = %v, want context.Canceled", err)
	}
	if progressCalls != 1 {
		t.Errorf("progress fired %d times, want 1", progressCalls)
	}
}

func TestRunFullEvaluationMissingDatasetAborts(t *testing.T) {
	gt := `{
	  "test_cases": [
	    {"id": 1, "query": "What is the total price?", "dataset": "missing.csv", "complexity": "simple", "category": "aggregation"}
	  ]
	}`

	e := newTestEvaluator(t, gt)

	if _, err := e.RunFullEvaluation(context.Background(), generator.KindBaseline, nil); err == nil {
		t.Fatal("expected run to abort on missing dataset")
	}
}

func TestRunSavesResults(t *testing.T) {
	gt := `{
	  "test_cases": [
	    {"id": 1, "query": "What is the total price?", "dataset": "sales.csv", "complexity": "simple", "category": "aggregation"}
	  ]
	}`

	e := newTestEvaluator(t, gt)

	out, path, err := e.Run(context.Background(), generator.KindBaseline)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if filepath.Base(path) != "baseline_evaluation_results.json" {
		t.Errorf("results path = %s", path)
	}

	loaded, err := LoadRunOutput(path)
	if err != nil {
		t.Fatalf("LoadRunOutput error: %v", err)
	}
	if loaded.Model != out.Model || loaded.Metrics.TotalTests != 1 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.DetailedResults) != 1 {
		t.Errorf("len(DetailedResults) = %d, want 1", len(loaded.DetailedResults))
	}
}

func TestEvaluateCaseUnknownGenerator(t *testing.T) {
	gt := `{
	  "test_cases": [
	    {"id": 1, "query": "What is the total price?", "dataset": "sales.csv", "complexity": "simple", "category": "aggregation"}
	  ]
	}`

	e := newTestEvaluator(t, gt)

	_, err := e.EvaluateCase(context.Background(), TestCase{ID: 1, Dataset: "sales.csv"}, generator.KindLLM)
	if err == nil {
		t.Fatal("expected error for unregistered generator kind")
	}
}
