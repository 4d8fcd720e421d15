package evaluation

import (
	"strings"
	"testing"

	"github.com/nlq-agent/backend/internal/generator"
)

func runOutput(kind generator.Kind, records []Record) *RunOutput {
	return &RunOutput{
		Model:           kind,
		Metrics:         CalculateMetrics(records, 90.0),
		DetailedResults: records,
	}
}

func TestGenerateComparisonReportOverall(t *testing.T) {
	llm := runOutput(generator.KindLLM, []Record{
		rec(1, "simple", "aggregation", true),
		rec(2, "simple", "aggregation", true),
		rec(3, "medium", "filtering", true),
		rec(4, "medium", "filtering", true),
	})
	baseline := runOutput(generator.KindBaseline, []Record{
		rec(1, "simple", "aggregation", true),
		rec(2, "simple", "aggregation", true),
		rec(3, "medium", "filtering", false),
		rec(4, "medium", "filtering", false),
	})

	r := GenerateComparisonReport(llm, baseline)

	if r.Overall.LLMAccuracy != 100.0 || r.Overall.BaselineAccuracy != 50.0 {
		t.Errorf("accuracies = %v vs %v", r.Overall.LLMAccuracy, r.Overall.BaselineAccuracy)
	}
	if r.Overall.AbsoluteImprovement != 50.0 {
		t.Errorf("AbsoluteImprovement = %v, want 50", r.Overall.AbsoluteImprovement)
	}
	if r.Overall.RelativeImprovement != 100.0 {
		t.Errorf("RelativeImprovement = %v, want 100", r.Overall.RelativeImprovement)
	}

	medium, ok := r.ByComplexity["medium"]
	if !ok || medium.Improvement != 100.0 {
		t.Errorf("medium comparison = %+v", medium)
	}
}

func TestGenerateComparisonReportZeroBaseline(t *testing.T) {
	llm := runOutput(generator.KindLLM, []Record{rec(1, "simple", "aggregation", true)})
	baseline := runOutput(generator.KindBaseline, []Record{rec(1, "simple", "aggregation", false)})

	r := GenerateComparisonReport(llm, baseline)

	if r.Overall.RelativeImprovement != 0 {
		t.Errorf("RelativeImprovement = %v, want 0 when baseline scored 0", r.Overall.RelativeImprovement)
	}
}

func TestGenerateComparisonReportCategoryUnion(t *testing.T) {
	llm := runOutput(generator.KindLLM, []Record{rec(1, "simple", "aggregation", true)})
	baseline := runOutput(generator.KindBaseline, []Record{rec(1, "simple", "extremes", true)})

	r := GenerateComparisonReport(llm, baseline)

	agg, ok := r.ByCategory["aggregation"]
	if !ok || agg.LLM != 100.0 || agg.Baseline != 0 {
		t.Errorf("aggregation = %+v", agg)
	}
	ext, ok := r.ByCategory["extremes"]
	if !ok || ext.LLM != 0 || ext.Baseline != 100.0 {
		t.Errorf("extremes = %+v", ext)
	}
}

func TestGenerateDetailedComparisonWinners(t *testing.T) {
	llm := []Record{
		rec(1, "simple", "aggregation", true),
		rec(2, "simple", "aggregation", true),
		rec(3, "medium", "filtering", false),
		rec(4, "medium", "filtering", false),
	}
	baseline := []Record{
		rec(4, "medium", "filtering", true),
		rec(3, "medium", "filtering", false),
		rec(2, "simple", "aggregation", true),
		rec(1, "simple", "aggregation", false),
	}

	rows, err := GenerateDetailedComparison(llm, baseline)
	if err != nil {
		t.Fatalf("GenerateDetailedComparison error: %v", err)
	}

	// Order follows the llm records; pairing is by id, not position.
	wants := []Winner{WinnerLLM, WinnerBoth, WinnerNeither, WinnerBaseline}
	for i, want := range wants {
		if rows[i].Winner != want {
			t.Errorf("row %d (test %d) winner = %s, want %s", i, rows[i].TestID, rows[i].Winner, want)
		}
	}
}

func TestGenerateDetailedComparisonRejectsMismatch(t *testing.T) {
	llm := []Record{rec(1, "simple", "aggregation", true)}

	if _, err := GenerateDetailedComparison(llm, nil); err == nil {
		t.Error("expected error for unequal record counts")
	}

	baseline := []Record{rec(2, "simple", "aggregation", true)}
	if _, err := GenerateDetailedComparison(llm, baseline); err == nil {
		t.Error("expected error for mismatched test ids")
	}

	dupLLM := []Record{rec(1, "simple", "aggregation", true), rec(2, "simple", "aggregation", true)}
	dupBaseline := []Record{rec(1, "simple", "aggregation", true), rec(1, "simple", "aggregation", true)}
	if _, err := GenerateDetailedComparison(dupLLM, dupBaseline); err == nil {
		t.Error("expected error for duplicate test ids")
	}
}

func TestTruncateQuestion(t *testing.T) {
	short := "What is the total?"
	if got := truncateQuestion(short); got != short {
		t.Errorf("truncateQuestion(%q) = %q", short, got)
	}

	long := strings.Repeat("a", 60)
	got := truncateQuestion(long)
	if got != strings.Repeat("a", 50)+"..." {
		t.Errorf("truncateQuestion long = %q", got)
	}
}
