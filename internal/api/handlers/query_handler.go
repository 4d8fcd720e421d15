package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/query"
	"github.com/nlq-agent/backend/pkg/logger"
)

const historyLimit = 10

type QueryHandler struct {
	engine *query.Engine
}

func NewQueryHandler(engine *query.Engine) *QueryHandler {
	return &QueryHandler{
		engine: engine,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}
	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	response, err := h.engine.ProcessQuestion(c.Context(), query.Request{
		SessionID: req.SessionID,
		Question:  req.Question,
	})
	if err != nil {
		switch {
		case errors.Is(err, query.ErrNoSessionData):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No dataset uploaded. Upload a file first.",
			})
		case errors.Is(err, generator.ErrNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Query generation is not configured",
			})
		default:
			logger.Error("Failed to process question", zap.Error(err))
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(response)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	records, err := h.engine.GetHistory(sessionID, historyLimit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		history = append(history, fiber.Map{
			"id":             r.ID,
			"question":       r.Question,
			"generated_code": r.GeneratedCode,
			"success":        r.Success,
			"error":          r.ErrorMessage,
			"latency_ms":     r.LatencyMS,
			"created_at":     r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}
