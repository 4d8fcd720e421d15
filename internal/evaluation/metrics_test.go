package evaluation

import "testing"

func rec(id int, complexity, category string, success bool) Record {
	return Record{
		TestID:           id,
		Complexity:       complexity,
		Category:         category,
		ExecutionSuccess: success,
	}
}

func TestCalculateMetricsEmpty(t *testing.T) {
	m := CalculateMetrics(nil, 90.0)

	if m.TotalTests != 0 || m.Successful != 0 || m.Failed != 0 {
		t.Errorf("counts = %d/%d/%d, want 0/0/0", m.TotalTests, m.Successful, m.Failed)
	}
	if m.AccuracyPercentage != 0 {
		t.Errorf("AccuracyPercentage = %v, want 0", m.AccuracyPercentage)
	}
	if m.MeetsTarget {
		t.Error("empty run must not meet the target")
	}
	if len(m.ComplexityBreakdown) != 0 || len(m.CategoryBreakdown) != 0 {
		t.Error("empty run must have no breakdowns")
	}
}

func TestCalculateMetrics(t *testing.T) {
	records := []Record{
		rec(1, "simple", "aggregation", true),
		rec(2, "simple", "aggregation", true),
		rec(3, "medium", "filtering", true),
		rec(4, "medium", "filtering", false),
	}

	m := CalculateMetrics(records, 90.0)

	if m.TotalTests != 4 || m.Successful != 3 || m.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/3/1", m.TotalTests, m.Successful, m.Failed)
	}
	if m.AccuracyPercentage != 75.0 {
		t.Errorf("AccuracyPercentage = %v, want 75", m.AccuracyPercentage)
	}
	if m.MeetsTarget {
		t.Error("75%% must not meet a 90%% target")
	}

	simple, ok := m.ComplexityBreakdown["simple"]
	if !ok || simple.Total != 2 || simple.Successful != 2 || simple.Accuracy != 100.0 {
		t.Errorf("simple breakdown = %+v", simple)
	}
	if _, ok := m.ComplexityBreakdown["complex"]; ok {
		t.Error("complexity level with no cases must be omitted")
	}

	filtering, ok := m.CategoryBreakdown["filtering"]
	if !ok || filtering.Total != 2 || filtering.Successful != 1 || filtering.Accuracy != 50.0 {
		t.Errorf("filtering breakdown = %+v", filtering)
	}
}

func TestCalculateMetricsMeetsTarget(t *testing.T) {
	records := []Record{
		rec(1, "simple", "aggregation", true),
		rec(2, "simple", "aggregation", true),
	}

	m := CalculateMetrics(records, 90.0)
	if !m.MeetsTarget {
		t.Error("100%% must meet a 90%% target")
	}

	m = CalculateMetrics(records, 100.0)
	if !m.MeetsTarget {
		t.Error("threshold comparison is inclusive")
	}
}
