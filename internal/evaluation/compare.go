package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nlq-agent/backend/internal/generator"
)

// Winner classifies one test case across the two models.
type Winner string

const (
	WinnerLLM      Winner = "llm"
	WinnerBaseline Winner = "baseline"
	WinnerBoth     Winner = "both"
	WinnerNeither  Winner = "neither"
)

// OverallComparison contrasts the two runs head to head. Relative
// improvement is expressed against the baseline accuracy and reported as 0
// when the baseline scored 0.
type OverallComparison struct {
	LLMAccuracy         float64 `json:"llm_accuracy"`
	BaselineAccuracy    float64 `json:"baseline_accuracy"`
	AbsoluteImprovement float64 `json:"absolute_improvement"`
	RelativeImprovement float64 `json:"relative_improvement"`
	LLMMeetsTarget      bool    `json:"llm_meets_target"`
	BaselineMeetsTarget bool    `json:"baseline_meets_target"`
}

// DimensionComparison contrasts one slice (complexity level or category).
type DimensionComparison struct {
	LLM         float64 `json:"llm"`
	Baseline    float64 `json:"baseline"`
	Improvement float64 `json:"improvement"`
}

// Report is the persisted shape of a comparative analysis.
type Report struct {
	Overall      OverallComparison              `json:"overall"`
	ByComplexity map[string]DimensionComparison `json:"by_complexity"`
	ByCategory   map[string]DimensionComparison `json:"by_category"`
}

// ComparisonRow is one line of the per-case comparison table.
type ComparisonRow struct {
	TestID          int
	Question        string
	Complexity      string
	Category        string
	LLMSuccess      bool
	BaselineSuccess bool
	Winner          Winner
}

// Analyzer loads two completed runs from the results directory and produces
// the comparison artifacts.
type Analyzer struct {
	resultsDir string
}

func NewAnalyzer(resultsDir string) *Analyzer {
	return &Analyzer{resultsDir: resultsDir}
}

// LoadRun reads one model's run from its canonical file.
func (a *Analyzer) LoadRun(kind generator.Kind) (*RunOutput, error) {
	return LoadRunOutput(filepath.Join(a.resultsDir, resultsFileName(kind)))
}

// LoadResults reads the llm and baseline runs from their canonical files.
func (a *Analyzer) LoadResults() (llm, baseline *RunOutput, err error) {
	llm, err = a.LoadRun(generator.KindLLM)
	if err != nil {
		return nil, nil, err
	}
	baseline, err = a.LoadRun(generator.KindBaseline)
	if err != nil {
		return nil, nil, err
	}
	return llm, baseline, nil
}

// GenerateComparisonReport computes the overall and per-dimension deltas
// between two runs. Complexity levels appear only when both runs cover
// them; categories are the union of both runs, with an absent side
// reported as 0.
func GenerateComparisonReport(llm, baseline *RunOutput) *Report {
	r := &Report{
		Overall: OverallComparison{
			LLMAccuracy:         llm.Metrics.AccuracyPercentage,
			BaselineAccuracy:    baseline.Metrics.AccuracyPercentage,
			LLMMeetsTarget:      llm.Metrics.MeetsTarget,
			BaselineMeetsTarget: baseline.Metrics.MeetsTarget,
		},
		ByComplexity: make(map[string]DimensionComparison),
		ByCategory:   make(map[string]DimensionComparison),
	}
	r.Overall.AbsoluteImprovement = r.Overall.LLMAccuracy - r.Overall.BaselineAccuracy
	if r.Overall.BaselineAccuracy > 0 {
		r.Overall.RelativeImprovement = r.Overall.AbsoluteImprovement / r.Overall.BaselineAccuracy * 100
	}

	for level, lb := range llm.Metrics.ComplexityBreakdown {
		bb, ok := baseline.Metrics.ComplexityBreakdown[level]
		if !ok {
			continue
		}
		r.ByComplexity[level] = DimensionComparison{
			LLM:         lb.Accuracy,
			Baseline:    bb.Accuracy,
			Improvement: lb.Accuracy - bb.Accuracy,
		}
	}

	for cat := range llm.Metrics.CategoryBreakdown {
		r.ByCategory[cat] = categoryComparison(llm.Metrics, baseline.Metrics, cat)
	}
	for cat := range baseline.Metrics.CategoryBreakdown {
		if _, done := r.ByCategory[cat]; !done {
			r.ByCategory[cat] = categoryComparison(llm.Metrics, baseline.Metrics, cat)
		}
	}

	return r
}

func categoryComparison(llm, baseline Metrics, cat string) DimensionComparison {
	var c DimensionComparison
	if b, ok := llm.CategoryBreakdown[cat]; ok {
		c.LLM = b.Accuracy
	}
	if b, ok := baseline.CategoryBreakdown[cat]; ok {
		c.Baseline = b.Accuracy
	}
	c.Improvement = c.LLM - c.Baseline
	return c
}

// GenerateDetailedComparison pairs the two record sets by test-case ID. The
// sets must cover exactly the same IDs; any mismatch is rejected rather
// than silently zipped.
func GenerateDetailedComparison(llmRecords, baselineRecords []Record) ([]ComparisonRow, error) {
	if len(llmRecords) != len(baselineRecords) {
		return nil, fmt.Errorf("record count mismatch: llm has %d, baseline has %d",
			len(llmRecords), len(baselineRecords))
	}

	byID := make(map[int]Record, len(baselineRecords))
	for _, r := range baselineRecords {
		if _, dup := byID[r.TestID]; dup {
			return nil, fmt.Errorf("duplicate test id %d in baseline records", r.TestID)
		}
		byID[r.TestID] = r
	}

	rows := make([]ComparisonRow, 0, len(llmRecords))
	for _, lr := range llmRecords {
		br, ok := byID[lr.TestID]
		if !ok {
			return nil, fmt.Errorf("test id %d present in llm records but missing from baseline", lr.TestID)
		}
		rows = append(rows, ComparisonRow{
			TestID:          lr.TestID,
			Question:        lr.Question,
			Complexity:      lr.Complexity,
			Category:        lr.Category,
			LLMSuccess:      lr.ExecutionSuccess,
			BaselineSuccess: br.ExecutionSuccess,
			Winner:          classifyWinner(lr.ExecutionSuccess, br.ExecutionSuccess),
		})
	}

	return rows, nil
}

func classifyWinner(llmOK, baselineOK bool) Winner {
	switch {
	case llmOK && baselineOK:
		return WinnerBoth
	case llmOK:
		return WinnerLLM
	case baselineOK:
		return WinnerBaseline
	default:
		return WinnerNeither
	}
}

// SaveComparisonReport writes the report to comparative_analysis.json and
// returns the path.
func (a *Analyzer) SaveComparisonReport(r *Report) (string, error) {
	if err := os.MkdirAll(a.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(a.resultsDir, "comparative_analysis.json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode comparison report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write comparison report: %w", err)
	}
	return path, nil
}

const maxQuestionLen = 50

// SaveComparisonTable writes the per-case table to detailed_comparison.csv
// and returns the path. Long questions are truncated for readability.
func (a *Analyzer) SaveComparisonTable(rows []ComparisonRow) (string, error) {
	if err := os.MkdirAll(a.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(a.resultsDir, "detailed_comparison.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create comparison table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Test ID", "Question", "Complexity", "Category", "LLM Success", "Baseline Success", "Winner"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write comparison table: %w", err)
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.TestID),
			truncateQuestion(row.Question),
			row.Complexity,
			row.Category,
			successMark(row.LLMSuccess),
			successMark(row.BaselineSuccess),
			string(row.Winner),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write comparison table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write comparison table: %w", err)
	}

	return path, nil
}

func truncateQuestion(q string) string {
	runes := []rune(q)
	if len(runes) <= maxQuestionLen {
		return q
	}
	return string(runes[:maxQuestionLen]) + "..."
}

func successMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
