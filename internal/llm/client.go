package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/metrics"
	"github.com/nlq-agent/backend/pkg/circuitbreaker"
	"github.com/nlq-agent/backend/pkg/logger"
	"github.com/nlq-agent/backend/pkg/retry"
)

// Client wraps a Provider with per-call timeout, retry with backoff, and a
// circuit breaker. A nil *Client is the explicit "not configured" state;
// construct one only when an API key is present.
type Client struct {
	provider    Provider
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	provider, err := NewProvider(ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("LLM client initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Model),
	)

	return &Client{
		provider:    provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

// BreakerState reports the circuit breaker state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.cb.State()
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.provider.Complete(ctx, req)
			if err != nil {
				return err
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			result = resp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GenerateQuery asks the model for a single SQL SELECT over table df and
// strips markdown fence artifacts from the reply.
func (c *Client) GenerateQuery(ctx context.Context, schema, question string) (string, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: "You translate natural-language questions about tabular data into SQL.",
		UserPrompt:   buildQueryPrompt(schema, question),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate query: %w", err)
	}

	return stripCodeFences(resp.Content), nil
}

var jsonListPattern = regexp.MustCompile(`(?s)\[.*\]`)

// fallbackSuggestions is returned when the model reply cannot be parsed.
var fallbackSuggestions = []string{
	"What is the total count of records?",
	"Can you show the first 5 rows?",
}

// SuggestQuestions asks the model for three analytical questions about the
// schema. Parse failures degrade to fixed fallback questions, never an error
// visible to the upload flow.
func (c *Client) SuggestQuestions(ctx context.Context, schema string) []string {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: "You suggest analytical questions a user could ask about a data table.",
		UserPrompt:   buildSuggestionsPrompt(schema),
		Temperature:  0.7,
	})
	if err != nil {
		logger.Warn("failed to generate suggested questions", zap.Error(err))
		return fallbackSuggestions
	}

	match := jsonListPattern.FindString(resp.Content)
	if match == "" {
		return fallbackSuggestions
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(match), &suggestions); err != nil {
		logger.Warn("failed to parse suggested questions", zap.Error(err))
		return fallbackSuggestions
	}

	return suggestions
}
