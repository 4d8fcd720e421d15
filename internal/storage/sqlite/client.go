package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/storage/models"
	"github.com/nlq-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		column_count INTEGER NOT NULL,
		columns TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_session ON uploads(session_id);
	CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		generated_code TEXT,
		model TEXT,
		success INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_session ON query_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		total_tests INTEGER NOT NULL,
		successful INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		accuracy REAL NOT NULL,
		meets_target INTEGER NOT NULL DEFAULT 0,
		results_path TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON evaluation_runs(model);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON evaluation_runs(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertUpload(upload *models.Upload) error {
	columnsJSON, _ := json.Marshal(upload.Columns)

	query := `
		INSERT INTO uploads (id, session_id, file_name, row_count, column_count, columns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		upload.ID,
		upload.SessionID,
		upload.FileName,
		upload.RowCount,
		upload.ColumnCount,
		string(columnsJSON),
		upload.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	logger.Debug("Upload recorded",
		zap.String("upload_id", upload.ID),
		zap.String("file", upload.FileName),
		zap.Int("rows", upload.RowCount),
	)
	return nil
}

func (c *Client) GetUpload(sessionID string) (*models.Upload, error) {
	query := `
		SELECT id, session_id, file_name, row_count, column_count, columns, created_at
		FROM uploads
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var u models.Upload
	var columnsJSON string
	var createdAt int64

	err := c.db.QueryRow(query, sessionID).Scan(
		&u.ID,
		&u.SessionID,
		&u.FileName,
		&u.RowCount,
		&u.ColumnCount,
		&columnsJSON,
		&createdAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	json.Unmarshal([]byte(columnsJSON), &u.Columns)
	u.CreatedAt = time.Unix(createdAt, 0)

	return &u, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, session_id, question, generated_code, model, success, error_message, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if record.Success {
		success = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.Question,
		record.GeneratedCode,
		record.Model,
		success,
		record.ErrorMessage,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("question", record.Question),
		zap.Bool("success", record.Success),
	)

	return nil
}

func (c *Client) GetQueryHistory(sessionID string, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, question, generated_code, model, success, error_message, latency_ms, created_at
		FROM query_history
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var success int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Question, &r.GeneratedCode, &r.Model, &success, &r.ErrorMessage, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.SessionID = sessionID
		r.Success = success != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}

func (c *Client) InsertEvaluationRun(run *models.EvaluationRun) error {
	query := `
		INSERT INTO evaluation_runs (id, model, total_tests, successful, failed, accuracy, meets_target, results_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	meetsTarget := 0
	if run.MeetsTarget {
		meetsTarget = 1
	}

	_, err := c.db.Exec(
		query,
		run.ID,
		run.Model,
		run.TotalTests,
		run.Successful,
		run.Failed,
		run.Accuracy,
		meetsTarget,
		run.ResultsPath,
		run.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}

	logger.Info("Evaluation run recorded",
		zap.String("run_id", run.ID),
		zap.String("model", run.Model),
		zap.Float64("accuracy", run.Accuracy),
	)

	return nil
}

func (c *Client) GetEvaluationRuns(model string, limit int) ([]models.EvaluationRun, error) {
	query := `
		SELECT id, model, total_tests, successful, failed, accuracy, meets_target, results_path, created_at
		FROM evaluation_runs
		WHERE model = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, model, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []models.EvaluationRun
	for rows.Next() {
		var r models.EvaluationRun
		var meetsTarget int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Model, &r.TotalTests, &r.Successful, &r.Failed, &r.Accuracy, &meetsTarget, &r.ResultsPath, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.MeetsTarget = meetsTarget != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}

	return runs, nil
}
