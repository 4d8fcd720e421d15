package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/evaluation"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/llm"
	"github.com/nlq-agent/backend/internal/sandbox"
	"github.com/nlq-agent/backend/pkg/config"
	appLogger "github.com/nlq-agent/backend/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Offline evaluation harness for natural-language query generation",
	Long: `Runs the ground-truth suite against a code generation model, aggregates
accuracy metrics, and compares the LLM generator against the keyword
baseline.

Examples:
  # Run the suite against the baseline generator
  evaluate run baseline

  # Run the suite against the LLM generator
  evaluate run llm

  # Run both and produce the comparison artifacts
  evaluate run all
  evaluate compare
`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [llm|baseline|all]",
	Short: "Run the full evaluation suite against one or both generators",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluation,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare saved llm and baseline runs",
	Args:  cobra.NoArgs,
	RunE:  runComparison,
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func buildEvaluator(cfg *config.Config) (*evaluation.Evaluator, error) {
	var llmClient *llm.Client
	if cfg.LLM.Configured() {
		var err error
		llmClient, err = llm.NewClient(llm.Config{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}

	sb := sandbox.New(
		time.Duration(cfg.Evaluation.ExecTimeoutSec)*time.Second,
		cfg.Evaluation.PreviewRows,
	)

	return evaluation.NewEvaluator(evaluation.Config{
		Store:   dataset.NewStore(cfg.Evaluation.DatasetsDir),
		Sandbox: sb,
		Generators: []generator.Generator{
			generator.NewLLMGenerator(llmClient),
			generator.NewBaseline(),
		},
		GroundTruthPath: cfg.Evaluation.GroundTruthPath,
		ResultsDir:      cfg.Evaluation.ResultsDir,
		TargetAccuracy:  cfg.Evaluation.TargetAccuracy,
	}), nil
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	var kinds []generator.Kind
	switch args[0] {
	case "llm":
		kinds = []generator.Kind{generator.KindLLM}
	case "baseline":
		kinds = []generator.Kind{generator.KindBaseline}
	case "all":
		kinds = []generator.Kind{generator.KindBaseline, generator.KindLLM}
	default:
		return fmt.Errorf("unknown model %q: must be llm, baseline or all", args[0])
	}

	evaluator, err := buildEvaluator(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, kind := range kinds {
		fmt.Printf("Running %s evaluation...\n", kind)

		out, path, err := evaluator.RunWithProgress(ctx, kind, func(index, total int, rec evaluation.Record) {
			status := "FAIL"
			if rec.ExecutionSuccess {
				status = "PASS"
			}
			fmt.Printf("  [%d/%d] %s test %d: %s\n", index, total, status, rec.TestID, rec.Question)
		})
		if err != nil {
			appLogger.Error("Evaluation run failed", zap.String("model", string(kind)), zap.Error(err))
			return err
		}

		printMetrics(out.Metrics, string(kind))
		fmt.Printf("Results saved to %s\n\n", path)
	}

	return nil
}

func printMetrics(m evaluation.Metrics, model string) {
	fmt.Printf("\n=== %s evaluation summary ===\n", model)
	fmt.Printf("Total tests:  %d\n", m.TotalTests)
	fmt.Printf("Successful:   %d\n", m.Successful)
	fmt.Printf("Failed:       %d\n", m.Failed)
	fmt.Printf("Accuracy:     %.1f%%\n", m.AccuracyPercentage)
	fmt.Printf("Target (%.0f%%): %s\n", m.TargetAccuracy, meetsLabel(m.MeetsTarget))

	if len(m.ComplexityBreakdown) > 0 {
		fmt.Println("\nBy complexity:")
		for _, level := range []string{"simple", "medium", "complex"} {
			if b, ok := m.ComplexityBreakdown[level]; ok {
				fmt.Printf("  %-8s %d/%d (%.1f%%)\n", level, b.Successful, b.Total, b.Accuracy)
			}
		}
	}

	if len(m.CategoryBreakdown) > 0 {
		fmt.Println("\nBy category:")
		for _, cat := range sortedKeys(m.CategoryBreakdown) {
			b := m.CategoryBreakdown[cat]
			fmt.Printf("  %-16s %d/%d (%.1f%%)\n", cat, b.Successful, b.Total, b.Accuracy)
		}
	}
}

func runComparison(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	analyzer := evaluation.NewAnalyzer(cfg.Evaluation.ResultsDir)

	llmRun, baselineRun, err := analyzer.LoadResults()
	if err != nil {
		return fmt.Errorf("both llm and baseline runs are required: %w", err)
	}

	report := evaluation.GenerateComparisonReport(llmRun, baselineRun)
	reportPath, err := analyzer.SaveComparisonReport(report)
	if err != nil {
		return err
	}

	rows, err := evaluation.GenerateDetailedComparison(llmRun.DetailedResults, baselineRun.DetailedResults)
	if err != nil {
		return err
	}
	tablePath, err := analyzer.SaveComparisonTable(rows)
	if err != nil {
		return err
	}

	fmt.Println("=== Comparative analysis ===")
	fmt.Printf("LLM accuracy:      %.1f%% (meets target: %v)\n",
		report.Overall.LLMAccuracy, report.Overall.LLMMeetsTarget)
	fmt.Printf("Baseline accuracy: %.1f%% (meets target: %v)\n",
		report.Overall.BaselineAccuracy, report.Overall.BaselineMeetsTarget)
	fmt.Printf("Absolute improvement: %+.1f points\n", report.Overall.AbsoluteImprovement)
	fmt.Printf("Relative improvement: %+.1f%%\n", report.Overall.RelativeImprovement)

	if len(report.ByComplexity) > 0 {
		fmt.Println("\nBy complexity:")
		for _, level := range []string{"simple", "medium", "complex"} {
			if c, ok := report.ByComplexity[level]; ok {
				fmt.Printf("  %-8s llm %.1f%% vs baseline %.1f%% (%+.1f)\n",
					level, c.LLM, c.Baseline, c.Improvement)
			}
		}
	}

	if len(report.ByCategory) > 0 {
		fmt.Println("\nBy category:")
		for _, cat := range sortedKeys(report.ByCategory) {
			c := report.ByCategory[cat]
			fmt.Printf("  %-16s llm %.1f%% vs baseline %.1f%% (%+.1f)\n",
				cat, c.LLM, c.Baseline, c.Improvement)
		}
	}

	wins := map[evaluation.Winner]int{}
	for _, row := range rows {
		wins[row.Winner]++
	}
	fmt.Printf("\nPer-case wins: llm %d, baseline %d, both %d, neither %d\n",
		wins[evaluation.WinnerLLM], wins[evaluation.WinnerBaseline],
		wins[evaluation.WinnerBoth], wins[evaluation.WinnerNeither])

	fmt.Printf("\nReport saved to %s\n", reportPath)
	fmt.Printf("Detailed table saved to %s\n", tablePath)

	return nil
}

func meetsLabel(ok bool) string {
	if ok {
		return "MET"
	}
	return "NOT MET"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
