package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/evaluation"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/metrics"
	"github.com/nlq-agent/backend/internal/storage/models"
	"github.com/nlq-agent/backend/internal/storage/sqlite"
	"github.com/nlq-agent/backend/pkg/logger"
)

type EvaluationHandler struct {
	evaluator *evaluation.Evaluator
	analyzer  *evaluation.Analyzer
	db        *sqlite.Client
}

func NewEvaluationHandler(evaluator *evaluation.Evaluator, analyzer *evaluation.Analyzer, db *sqlite.Client) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
		analyzer:  analyzer,
		db:        db,
	}
}

// HandleRun runs the full suite for one model kind and returns the metrics.
// The run is synchronous; clients wanting per-case progress use the
// websocket endpoint instead.
func (h *EvaluationHandler) HandleRun(c *fiber.Ctx) error {
	var req struct {
		Model string `json:"model"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	kind, err := parseKind(req.Model)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out, path, err := h.evaluator.Run(c.Context(), kind)
	if err != nil {
		logger.Error("Evaluation run failed", zap.String("model", string(kind)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Evaluation run failed: " + err.Error(),
		})
	}

	h.recordRun(out, path)

	return c.JSON(fiber.Map{
		"model":        out.Model,
		"metrics":      out.Metrics,
		"results_path": path,
	})
}

func (h *EvaluationHandler) recordRun(out *evaluation.RunOutput, path string) {
	metrics.EvaluationAccuracy.WithLabelValues(string(out.Model)).Set(out.Metrics.AccuracyPercentage)
	metrics.EvaluationRunsTotal.WithLabelValues(string(out.Model)).Inc()

	run := &models.EvaluationRun{
		ID:          uuid.New().String(),
		Model:       string(out.Model),
		TotalTests:  out.Metrics.TotalTests,
		Successful:  out.Metrics.Successful,
		Failed:      out.Metrics.Failed,
		Accuracy:    out.Metrics.AccuracyPercentage,
		MeetsTarget: out.Metrics.MeetsTarget,
		ResultsPath: path,
		CreatedAt:   time.Now(),
	}
	if err := h.db.InsertEvaluationRun(run); err != nil {
		logger.Error("Failed to record evaluation run", zap.Error(err))
	}
}

const runHistoryLimit = 20

// HandleRunHistory lists the most recent persisted runs for one model kind,
// newest first.
func (h *EvaluationHandler) HandleRunHistory(c *fiber.Ctx) error {
	kind, err := parseKind(c.Query("model"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	runs, err := h.db.GetEvaluationRuns(string(kind), runHistoryLimit)
	if err != nil {
		logger.Error("Failed to load evaluation runs", zap.String("model", string(kind)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load evaluation runs",
		})
	}

	items := make([]fiber.Map, 0, len(runs))
	for _, r := range runs {
		items = append(items, fiber.Map{
			"id":           r.ID,
			"model":        r.Model,
			"total_tests":  r.TotalTests,
			"successful":   r.Successful,
			"failed":       r.Failed,
			"accuracy":     r.Accuracy,
			"meets_target": r.MeetsTarget,
			"results_path": r.ResultsPath,
			"created_at":   r.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"model": string(kind),
		"runs":  items,
	})
}

// HandleResults returns the saved results file for one model kind.
func (h *EvaluationHandler) HandleResults(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("model"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out, err := h.analyzer.LoadRun(kind)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No results found for model " + string(kind),
		})
	}

	return c.JSON(out)
}

// HandleComparison computes and returns the comparative analysis of the two
// most recent runs.
func (h *EvaluationHandler) HandleComparison(c *fiber.Ctx) error {
	llmRun, baselineRun, err := h.analyzer.LoadResults()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Both llm and baseline runs are required: " + err.Error(),
		})
	}

	report := evaluation.GenerateComparisonReport(llmRun, baselineRun)

	rows, err := evaluation.GenerateDetailedComparison(llmRun.DetailedResults, baselineRun.DetailedResults)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	detailed := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		detailed = append(detailed, fiber.Map{
			"test_id":          row.TestID,
			"question":         row.Question,
			"complexity":       row.Complexity,
			"category":         row.Category,
			"llm_success":      row.LLMSuccess,
			"baseline_success": row.BaselineSuccess,
			"winner":           row.Winner,
		})
	}

	return c.JSON(fiber.Map{
		"report":   report,
		"detailed": detailed,
	})
}

func parseKind(model string) (generator.Kind, error) {
	switch model {
	case string(generator.KindLLM):
		return generator.KindLLM, nil
	case string(generator.KindBaseline):
		return generator.KindBaseline, nil
	default:
		return "", errors.New("model must be llm or baseline")
	}
}
