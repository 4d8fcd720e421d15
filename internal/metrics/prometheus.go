package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlq_query_duration_seconds",
			Help:    "End-to-end question processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"model"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_query_total",
			Help: "Total number of questions processed",
		},
		[]string{"model", "status"},
	)

	GenerationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_generation_failures_total",
			Help: "Total code generation failures",
		},
		[]string{"model"},
	)

	ExecutionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_execution_failures_total",
			Help: "Total generated-code execution failures",
		},
		[]string{"model"},
	)

	ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nlq_execution_duration_seconds",
			Help:    "Generated-code execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_uploads_total",
			Help: "Total dataset uploads",
		},
		[]string{"status"},
	)

	UploadRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nlq_upload_rows",
			Help:    "Row counts of uploaded datasets",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	EvaluationAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nlq_evaluation_accuracy_percent",
			Help: "Accuracy of the most recent evaluation run",
		},
		[]string{"model"},
	)

	EvaluationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlq_evaluation_runs_total",
			Help: "Total evaluation runs completed",
		},
		[]string{"model"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(GenerationFailures)
	prometheus.MustRegister(ExecutionFailures)
	prometheus.MustRegister(ExecutionDuration)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(UploadRows)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(EvaluationAccuracy)
	prometheus.MustRegister(EvaluationRunsTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
