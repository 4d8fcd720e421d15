package models

import "time"

type Upload struct {
	ID          string
	SessionID   string
	FileName    string
	RowCount    int
	ColumnCount int
	Columns     []string
	CreatedAt   time.Time
}

type QueryRecord struct {
	ID            string
	SessionID     string
	Question      string
	GeneratedCode string
	Model         string
	Success       bool
	ErrorMessage  string
	LatencyMS     int
	CreatedAt     time.Time
}

type EvaluationRun struct {
	ID          string
	Model       string
	TotalTests  int
	Successful  int
	Failed      int
	Accuracy    float64
	MeetsTarget bool
	ResultsPath string
	CreatedAt   time.Time
}
