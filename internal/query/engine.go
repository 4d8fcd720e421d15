package query

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscache "github.com/nlq-agent/backend/internal/cache/redis"
	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/metrics"
	"github.com/nlq-agent/backend/internal/sandbox"
	"github.com/nlq-agent/backend/internal/storage/models"
	"github.com/nlq-agent/backend/internal/storage/sqlite"
	"github.com/nlq-agent/backend/pkg/logger"
	"github.com/nlq-agent/backend/pkg/utils"
)

const (
	answerCacheTTL = 1 * time.Hour
	exportCacheTTL = 24 * time.Hour
)

type Request struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type Response struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	GeneratedCode string     `json:"generated_code"`
	Columns       []string   `json:"columns"`
	Rows          [][]string `json:"rows"`
	RowCount      int        `json:"row_count"`
	Truncated     bool       `json:"truncated"`
	LatencyMS     int        `json:"latency_ms"`
	Cached        bool       `json:"cached"`
}

// Engine answers one natural-language question against the dataset stored
// for a session: generate SQL, execute it, persist the outcome, cache the
// answer and its CSV export.
type Engine struct {
	gen     generator.Generator
	sandbox *sandbox.Sandbox
	cache   *rediscache.Client
	db      *sqlite.Client
}

func NewEngine(gen generator.Generator, sb *sandbox.Sandbox, cache *rediscache.Client, db *sqlite.Client) *Engine {
	return &Engine{
		gen:     gen,
		sandbox: sb,
		cache:   cache,
		db:      db,
	}
}

func (e *Engine) ProcessQuestion(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	ds, found, err := e.cache.GetSessionDataset(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session data: %w", err)
	}
	if !found {
		return nil, ErrNoSessionData
	}

	answerHash := utils.HashString(req.SessionID + "|" + ds.Name + "|" + req.Question)
	var cached Response
	if hit, err := e.cache.GetAnswer(ctx, answerHash, &cached); err == nil && hit {
		metrics.CacheHits.WithLabelValues("answer").Inc()
		cached.Cached = true
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("answer").Inc()

	resp, err := e.answer(ctx, req, ds)
	latency := int(time.Since(start).Milliseconds())

	model := string(e.gen.Kind())
	record := &models.QueryRecord{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Question:  req.Question,
		Model:     model,
		LatencyMS: latency,
		CreatedAt: time.Now(),
	}

	if err != nil {
		record.ErrorMessage = err.Error()
		metrics.QueryTotal.WithLabelValues(model, "error").Inc()
		if dbErr := e.db.InsertQueryRecord(record); dbErr != nil {
			logger.Error("Failed to record query", zap.Error(dbErr))
		}
		return nil, err
	}

	resp.LatencyMS = latency
	record.GeneratedCode = resp.GeneratedCode
	record.Success = true
	metrics.QueryTotal.WithLabelValues(model, "success").Inc()
	metrics.QueryDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if dbErr := e.db.InsertQueryRecord(record); dbErr != nil {
		logger.Error("Failed to record query", zap.Error(dbErr))
	}

	if err := e.cache.SetAnswer(ctx, answerHash, resp, answerCacheTTL); err != nil {
		logger.Warn("Failed to cache answer", zap.Error(err))
	}
	if err := e.cache.SetExport(ctx, req.SessionID, renderCSV(resp), exportCacheTTL); err != nil {
		logger.Warn("Failed to cache export", zap.Error(err))
	}

	return resp, nil
}

func (e *Engine) answer(ctx context.Context, req Request, ds *dataset.Dataset) (*Response, error) {
	code, err := e.gen.Generate(ctx, req.Question, ds)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues(string(e.gen.Kind())).Inc()
		return nil, fmt.Errorf("failed to generate query: %w", err)
	}

	execStart := time.Now()
	result, err := e.sandbox.Execute(ctx, code, ds)
	metrics.ExecutionDuration.Observe(time.Since(execStart).Seconds())
	if err != nil {
		metrics.ExecutionFailures.WithLabelValues(string(e.gen.Kind())).Inc()
		logger.Debug("Execution failed",
			zap.String("session_id", req.SessionID),
			zap.String("code", code),
			zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return &Response{
		ID:            uuid.New().String(),
		Question:      req.Question,
		GeneratedCode: code,
		Columns:       result.Columns,
		Rows:          result.Rows,
		RowCount:      result.RowCount,
		Truncated:     result.Truncated,
	}, nil
}

// GetHistory returns the most recent questions asked in a session.
func (e *Engine) GetHistory(sessionID string, limit int) ([]models.QueryRecord, error) {
	return e.db.GetQueryHistory(sessionID, limit)
}

func renderCSV(resp *Response) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(resp.Columns)
	for _, row := range resp.Rows {
		w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
