package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nlq-agent/backend/internal/generator"
)

// RunOutput is the persisted shape of one evaluation run.
type RunOutput struct {
	Model           generator.Kind `json:"model"`
	Metrics         Metrics        `json:"metrics"`
	DetailedResults []Record       `json:"detailed_results"`
}

// resultsFileName returns the canonical results file name for a model kind,
// e.g. llm_evaluation_results.json.
func resultsFileName(kind generator.Kind) string {
	return fmt.Sprintf("%s_evaluation_results.json", kind)
}

// SaveResults writes a run to its canonical file under the results
// directory, creating the directory if needed, and returns the path.
func (e *Evaluator) SaveResults(out *RunOutput) (string, error) {
	if err := os.MkdirAll(e.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	path := filepath.Join(e.resultsDir, resultsFileName(out.Model))
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	return path, nil
}

// LoadRunOutput reads a previously saved run back from disk.
func LoadRunOutput(path string) (*RunOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var out RunOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return &out, nil
}
