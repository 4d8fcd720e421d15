package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetSessionDataset stores the uploaded dataset for a browser session.
// Subsequent uploads under the same session replace it.
func (c *Client) SetSessionDataset(ctx context.Context, sessionID string, ds *dataset.Dataset, ttl time.Duration) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("session:%s:dataset", sessionID), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session dataset: %w", err)
	}

	logger.Debug("Session dataset cached",
		zap.String("session_id", sessionID),
		zap.Int("rows", len(ds.Rows)),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetSessionDataset(ctx context.Context, sessionID string) (*dataset.Dataset, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("session:%s:dataset", sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session dataset: %w", err)
	}

	var ds dataset.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	return &ds, true, nil
}

// SetExport stores the CSV rendering of a session's last successful answer.
func (c *Client) SetExport(ctx context.Context, sessionID string, csvData []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, fmt.Sprintf("session:%s:export", sessionID), csvData, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set export cache: %w", err)
	}

	logger.Debug("Export cached", zap.String("session_id", sessionID), zap.Int("bytes", len(csvData)))
	return nil
}

func (c *Client) GetExport(ctx context.Context, sessionID string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("session:%s:export", sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get export cache: %w", err)
	}
	return data, true, nil
}

// SetAnswer caches a computed answer keyed by the hash of session, question
// and dataset so repeated questions skip generation and execution.
func (c *Client) SetAnswer(ctx context.Context, answerHash string, response interface{}, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("answer:%s", answerHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set answer cache: %w", err)
	}

	logger.Debug("Answer cached", zap.String("answer_hash", answerHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetAnswer(ctx context.Context, answerHash string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("answer:%s", answerHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get answer cache: %w", err)
	}

	if err := json.Unmarshal(data, response); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Answer cache hit", zap.String("answer_hash", answerHash))
	return true, nil
}

// ClearSession removes every key belonging to one session.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("session:%s:*", sessionID), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Session cleared", zap.String("session_id", sessionID))
	return nil
}
