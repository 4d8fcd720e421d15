package evaluation

// Breakdown is the success rate of one slice of the suite.
type Breakdown struct {
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
	Accuracy   float64 `json:"accuracy"`
}

// Metrics aggregates a single run. Accuracy is a percentage in [0, 100].
type Metrics struct {
	TotalTests          int                  `json:"total_tests"`
	Successful          int                  `json:"successful"`
	Failed              int                  `json:"failed"`
	AccuracyPercentage  float64              `json:"accuracy_percentage"`
	TargetAccuracy      float64              `json:"target_accuracy"`
	MeetsTarget         bool                 `json:"meets_target"`
	ComplexityBreakdown map[string]Breakdown `json:"complexity_breakdown"`
	CategoryBreakdown   map[string]Breakdown `json:"category_breakdown"`
}

// complexityLevels is the closed set of recognized complexity labels.
// Levels with no test cases are omitted from the breakdown.
var complexityLevels = []string{"simple", "medium", "complex"}

// CalculateMetrics aggregates per-case records into run metrics. An empty
// record set yields zero accuracy and does not meet the target.
func CalculateMetrics(records []Record, targetAccuracy float64) Metrics {
	m := Metrics{
		TotalTests:          len(records),
		TargetAccuracy:      targetAccuracy,
		ComplexityBreakdown: make(map[string]Breakdown),
		CategoryBreakdown:   make(map[string]Breakdown),
	}

	for _, r := range records {
		if r.ExecutionSuccess {
			m.Successful++
		}
	}
	m.Failed = m.TotalTests - m.Successful
	m.AccuracyPercentage = accuracy(m.Successful, m.TotalTests)
	m.MeetsTarget = m.TotalTests > 0 && m.AccuracyPercentage >= targetAccuracy

	for _, level := range complexityLevels {
		if b, ok := sliceBreakdown(records, func(r Record) bool { return r.Complexity == level }); ok {
			m.ComplexityBreakdown[level] = b
		}
	}

	// Categories are an open set: slice over whatever labels appear.
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		cat := r.Category
		if b, ok := sliceBreakdown(records, func(r Record) bool { return r.Category == cat }); ok {
			m.CategoryBreakdown[cat] = b
		}
	}

	return m
}

func sliceBreakdown(records []Record, match func(Record) bool) (Breakdown, bool) {
	var b Breakdown
	for _, r := range records {
		if !match(r) {
			continue
		}
		b.Total++
		if r.ExecutionSuccess {
			b.Successful++
		}
	}
	if b.Total == 0 {
		return Breakdown{}, false
	}
	b.Accuracy = accuracy(b.Successful, b.Total)
	return b, true
}

func accuracy(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}
