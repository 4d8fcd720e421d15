package generator

import (
	"context"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/llm"
)

// LLMGenerator produces SQL by prompting a hosted model with the dataset
// schema and the question. The model's compliance with the prompt contract
// is not verified beyond fence stripping; bad output surfaces as an
// execution failure downstream.
type LLMGenerator struct {
	client *llm.Client
}

// NewLLMGenerator accepts a nil client, which makes every Generate call fail
// with ErrNotConfigured. This keeps the not-configured state explicit
// instead of a process-global flag.
func NewLLMGenerator(client *llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

func (g *LLMGenerator) Kind() Kind {
	return KindLLM
}

func (g *LLMGenerator) Generate(ctx context.Context, question string, ds *dataset.Dataset) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}

	return g.client.GenerateQuery(ctx, ds.Schema(), question)
}
