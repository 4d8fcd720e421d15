package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/llm"
	"github.com/nlq-agent/backend/internal/metrics"
	"github.com/nlq-agent/backend/internal/storage/models"
	"github.com/nlq-agent/backend/internal/storage/sqlite"
	"github.com/nlq-agent/backend/pkg/logger"
)

const sessionTTL = 24 * time.Hour

// SessionCache is the slice of the cache the upload handler needs.
type SessionCache interface {
	ClearSession(ctx context.Context, sessionID string) error
	SetSessionDataset(ctx context.Context, sessionID string, ds *dataset.Dataset, ttl time.Duration) error
}

type UploadHandler struct {
	cache     SessionCache
	db        *sqlite.Client
	llmClient *llm.Client
}

func NewUploadHandler(cache SessionCache, db *sqlite.Client, llmClient *llm.Client) *UploadHandler {
	return &UploadHandler{
		cache:     cache,
		db:        db,
		llmClient: llmClient,
	}
}

// HandleUpload accepts a multipart tabular file, parses it, stores it for
// the session and returns the inferred schema plus suggested questions.
// A missing session_id starts a new session.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file is required",
		})
	}

	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	f, err := fileHeader.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer f.Close()

	ds, err := dataset.LoadStream(f, fileHeader.Filename)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to parse uploaded file",
			zap.String("file", fileHeader.Filename),
			zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse file: " + err.Error(),
		})
	}

	// A new upload invalidates the previous dataset and any result export
	// still cached from it.
	if err := h.cache.ClearSession(c.Context(), sessionID); err != nil {
		logger.Warn("Failed to clear previous session data",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	if err := h.cache.SetSessionDataset(c.Context(), sessionID, ds, sessionTTL); err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to store session dataset", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store uploaded data",
		})
	}

	upload := &models.Upload{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		FileName:    fileHeader.Filename,
		RowCount:    len(ds.Rows),
		ColumnCount: len(ds.Columns),
		Columns:     ds.ColumnNames(),
		CreatedAt:   time.Now(),
	}
	if err := h.db.InsertUpload(upload); err != nil {
		logger.Error("Failed to record upload", zap.Error(err))
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadRows.Observe(float64(len(ds.Rows)))

	var suggestions []string
	if h.llmClient != nil {
		suggestions = h.llmClient.SuggestQuestions(c.Context(), ds.Schema())
	}

	columns := make([]fiber.Map, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		columns = append(columns, fiber.Map{
			"name": col.Name,
			"type": string(col.Type),
		})
	}

	return c.JSON(fiber.Map{
		"session_id":          sessionID,
		"file_name":           fileHeader.Filename,
		"row_count":           len(ds.Rows),
		"columns":             columns,
		"suggested_questions": suggestions,
	})
}
