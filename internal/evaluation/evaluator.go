package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/sandbox"
	"github.com/nlq-agent/backend/pkg/logger"
)

// Record captures the outcome of running a single test case through one
// generation model. GenerationError and ExecutionError are mutually
// exclusive: a case that fails generation is never executed.
type Record struct {
	TestID           int            `json:"test_id"`
	Question         string         `json:"question"`
	Dataset          string         `json:"dataset"`
	Complexity       string         `json:"complexity"`
	Category         string         `json:"category"`
	Model            generator.Kind `json:"model"`
	GeneratedCode    string         `json:"generated_code,omitempty"`
	GenerationError  string         `json:"generation_error,omitempty"`
	ExecutionSuccess bool           `json:"execution_success"`
	ExecutionError   string         `json:"execution_error,omitempty"`
	ResultPreview    string         `json:"result_preview,omitempty"`
}

// ProgressFunc is invoked after each case completes, in suite order.
type ProgressFunc func(index, total int, rec Record)

// Evaluator drives the full suite against one generator at a time. Per-case
// failures are recorded and the run continues; only suite-level problems
// (unreadable ground truth, missing dataset file) abort the run.
type Evaluator struct {
	store      *dataset.Store
	sandbox    *sandbox.Sandbox
	generators map[generator.Kind]generator.Generator

	groundTruthPath string
	resultsDir      string
	targetAccuracy  float64
}

type Config struct {
	Store           *dataset.Store
	Sandbox         *sandbox.Sandbox
	Generators      []generator.Generator
	GroundTruthPath string
	ResultsDir      string
	TargetAccuracy  float64
}

func NewEvaluator(cfg Config) *Evaluator {
	gens := make(map[generator.Kind]generator.Generator, len(cfg.Generators))
	for _, g := range cfg.Generators {
		gens[g.Kind()] = g
	}
	return &Evaluator{
		store:           cfg.Store,
		sandbox:         cfg.Sandbox,
		generators:      gens,
		groundTruthPath: cfg.GroundTruthPath,
		resultsDir:      cfg.ResultsDir,
		targetAccuracy:  cfg.TargetAccuracy,
	}
}

// EvaluateCase runs one test case through the given generator. The returned
// error is reserved for suite-level failures; generation and execution
// failures land inside the Record.
func (e *Evaluator) EvaluateCase(ctx context.Context, tc TestCase, kind generator.Kind) (Record, error) {
	rec := Record{
		TestID:     tc.ID,
		Question:   tc.Query,
		Dataset:    tc.Dataset,
		Complexity: tc.Complexity,
		Category:   tc.Category,
		Model:      kind,
	}

	gen, ok := e.generators[kind]
	if !ok {
		return rec, fmt.Errorf("no %s generator registered", kind)
	}

	ds, err := e.store.Open(tc.Dataset)
	if err != nil {
		return rec, fmt.Errorf("test case %d: %w", tc.ID, err)
	}

	code, err := gen.Generate(ctx, tc.Query, ds)
	if err != nil {
		rec.GenerationError = err.Error()
		logger.Debug("code generation failed",
			zap.Int("test_id", tc.ID),
			zap.String("model", string(kind)),
			zap.Error(err))
		return rec, nil
	}
	rec.GeneratedCode = code

	result, err := e.sandbox.Execute(ctx, code, ds)
	if err != nil {
		rec.ExecutionError = err.Error()
		logger.Debug("execution failed",
			zap.Int("test_id", tc.ID),
			zap.String("model", string(kind)),
			zap.Error(err))
		return rec, nil
	}

	rec.ExecutionSuccess = true
	rec.ResultPreview = result.Preview()
	return rec, nil
}

// RunFullEvaluation runs every ground-truth case through one generator, in
// suite order, and returns the per-case records. A non-nil progress
// callback fires after each case.
func (e *Evaluator) RunFullEvaluation(ctx context.Context, kind generator.Kind, progress ProgressFunc) ([]Record, error) {
	gt, err := LoadGroundTruth(e.groundTruthPath)
	if err != nil {
		return nil, err
	}

	logger.Info("starting evaluation run",
		zap.String("model", string(kind)),
		zap.Int("test_cases", len(gt.TestCases)))

	records := make([]Record, 0, len(gt.TestCases))
	for i, tc := range gt.TestCases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := e.EvaluateCase(ctx, tc, kind)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if progress != nil {
			progress(i+1, len(gt.TestCases), rec)
		}
	}

	return records, nil
}

// Run executes the full suite, computes metrics and persists the results
// file. It is the one-call entrypoint used by the CLI and the API.
func (e *Evaluator) Run(ctx context.Context, kind generator.Kind) (*RunOutput, string, error) {
	return e.RunWithProgress(ctx, kind, nil)
}

// RunWithProgress is Run with a per-case progress callback.
func (e *Evaluator) RunWithProgress(ctx context.Context, kind generator.Kind, progress ProgressFunc) (*RunOutput, string, error) {
	records, err := e.RunFullEvaluation(ctx, kind, progress)
	if err != nil {
		return nil, "", err
	}

	m := CalculateMetrics(records, e.targetAccuracy)
	out := &RunOutput{
		Model:           kind,
		Metrics:         m,
		DetailedResults: records,
	}

	path, err := e.SaveResults(out)
	if err != nil {
		return nil, "", err
	}

	logger.Info("evaluation run complete",
		zap.String("model", string(kind)),
		zap.Float64("accuracy", m.AccuracyPercentage),
		zap.Bool("meets_target", m.MeetsTarget),
		zap.String("results", path))

	return out, path, nil
}
