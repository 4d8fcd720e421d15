package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nlq-agent/backend/pkg/circuitbreaker"
	"github.com/nlq-agent/backend/pkg/retry"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &CompletionResponse{Content: s.content}, nil
}

func newStubClient(p Provider) *Client {
	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = 1

	return &Client{
		provider:    p,
		model:       "stub-model",
		temperature: 0.2,
		maxTokens:   256,
		timeout:     time.Second,
		cb:          circuitbreaker.New("test", circuitbreaker.Config{}),
		retryConfig: retryConfig,
	}
}

func TestGenerateQueryStripsFences(t *testing.T) {
	c := newStubClient(&stubProvider{content: "```sql\nSELECT * FROM df\n```"})

	got, err := c.GenerateQuery(context.Background(), "- 'price' (type: double)", "show everything")
	if err != nil {
		t.Fatalf("GenerateQuery error: %v", err)
	}
	if got != "SELECT * FROM df" {
		t.Errorf("GenerateQuery = %q", got)
	}
}

func TestGenerateQueryPropagatesError(t *testing.T) {
	c := newStubClient(&stubProvider{err: errors.New("upstream down")})

	if _, err := c.GenerateQuery(context.Background(), "schema", "question"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSuggestQuestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "clean json list",
			content: `["A?", "B?", "C?"]`,
			want:    []string{"A?", "B?", "C?"},
		},
		{
			name:    "list embedded in prose",
			content: "Here you go:\n[\"A?\", \"B?\"]\nEnjoy!",
			want:    []string{"A?", "B?"},
		},
		{
			name:    "unparseable reply falls back",
			content: "I cannot answer that.",
			want:    fallbackSuggestions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newStubClient(&stubProvider{content: tt.content})
			got := c.SuggestQuestions(context.Background(), "schema")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestQuestions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreakerStateReflectsFailures(t *testing.T) {
	c := newStubClient(&stubProvider{err: errors.New("upstream down")})

	if got := c.BreakerState(); got != circuitbreaker.StateClosed {
		t.Fatalf("initial state = %v, want closed", got)
	}

	for i := 0; i < 5; i++ {
		if _, err := c.GenerateQuery(context.Background(), "schema", "question"); err == nil {
			t.Fatal("expected error")
		}
	}

	if got := c.BreakerState(); got != circuitbreaker.StateOpen {
		t.Errorf("state after repeated failures = %v, want open", got)
	}
}

func TestSuggestQuestionsProviderErrorFallsBack(t *testing.T) {
	c := newStubClient(&stubProvider{err: errors.New("upstream down")})

	got := c.SuggestQuestions(context.Background(), "schema")
	if !reflect.DeepEqual(got, fallbackSuggestions) {
		t.Errorf("SuggestQuestions = %v, want fallback", got)
	}
}
