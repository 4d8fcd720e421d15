package generator

import (
	"context"
	"errors"

	"github.com/nlq-agent/backend/internal/dataset"
)

// Kind identifies a code-producing strategy. The set is closed.
type Kind string

const (
	KindLLM      Kind = "llm"
	KindBaseline Kind = "baseline"
)

// Generation failure reasons. These signal "no code produced" rather than a
// fault; the evaluator records them and skips execution for the case.
var (
	ErrNoQueryType   = errors.New("no query type detected in question")
	ErrNoColumns     = errors.New("no matching columns detected in question")
	ErrNotConfigured = errors.New("llm generator is not configured")
)

// Generator turns a natural-language question about a dataset into a single
// SQL SELECT statement over a table named df.
type Generator interface {
	Kind() Kind
	Generate(ctx context.Context, question string, ds *dataset.Dataset) (string, error)
}
