package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	rediscache "github.com/nlq-agent/backend/internal/cache/redis"
	"github.com/nlq-agent/backend/pkg/logger"
)

type ExportHandler struct {
	cache *rediscache.Client
}

func NewExportHandler(cache *rediscache.Client) *ExportHandler {
	return &ExportHandler{
		cache: cache,
	}
}

// HandleDownload serves the CSV of the session's last successful answer.
func (h *ExportHandler) HandleDownload(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	data, found, err := h.cache.GetExport(c.Context(), sessionID)
	if err != nil {
		logger.Error("Failed to load export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load export",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no data available",
		})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="query_result.csv"`)
	return c.Send(data)
}
