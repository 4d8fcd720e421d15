package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/evaluation"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/pkg/logger"
)

// WebSocketHandler streams evaluation runs case by case, so a client can
// render live progress instead of waiting on the synchronous endpoint.
type WebSocketHandler struct {
	evaluator   *evaluation.Evaluator
	evalHandler *EvaluationHandler
}

func NewWebSocketHandler(evaluator *evaluation.Evaluator, evalHandler *EvaluationHandler) *WebSocketHandler {
	return &WebSocketHandler{
		evaluator:   evaluator,
		evalHandler: evalHandler,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type  string `json:"type"`
			Model string `json:"model"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "run" {
			continue
		}

		kind, err := parseKind(msg.Model)
		if err != nil {
			h.sendError(c, err.Error())
			continue
		}

		logger.Info("Processing WebSocket evaluation run", zap.String("model", msg.Model))

		if err := h.streamRun(c, kind); err != nil {
			logger.Error("Failed to stream evaluation run", zap.Error(err))
			h.sendError(c, "Evaluation run failed: "+err.Error())
		}
	}
}

func (h *WebSocketHandler) streamRun(c *websocket.Conn, kind generator.Kind) error {
	// A failed write means the client is gone; cancelling stops the run
	// before the next case instead of evaluating against a dead connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := func(msg map[string]interface{}) {
		if err := c.WriteJSON(msg); err != nil {
			logger.Warn("Failed to write WebSocket message", zap.Error(err))
			cancel()
		}
	}

	send(map[string]interface{}{
		"type":  "status",
		"model": string(kind),
	})

	out, path, err := h.evaluator.RunWithProgress(ctx, kind, func(index, total int, rec evaluation.Record) {
		send(map[string]interface{}{
			"type":              "case",
			"index":             index,
			"total":             total,
			"test_id":           rec.TestID,
			"question":          rec.Question,
			"execution_success": rec.ExecutionSuccess,
		})
	})
	if err != nil {
		return err
	}

	h.evalHandler.recordRun(out, path)

	return c.WriteJSON(map[string]interface{}{
		"type":    "complete",
		"model":   out.Model,
		"metrics": out.Metrics,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
