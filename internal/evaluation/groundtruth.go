package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestCase is one labeled entry of the ground-truth suite. The suite is
// immutable: loaded once at run start, never modified.
type TestCase struct {
	ID         int    `json:"id" yaml:"id"`
	Query      string `json:"query" yaml:"query"`
	Dataset    string `json:"dataset" yaml:"dataset"`
	Complexity string `json:"complexity" yaml:"complexity"`
	Category   string `json:"category" yaml:"category"`
}

type GroundTruth struct {
	TestCases []TestCase `json:"test_cases" yaml:"test_cases"`
}

// LoadGroundTruth reads the suite from a JSON or YAML document, dispatching
// on file extension.
func LoadGroundTruth(path string) (*GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth: %w", err)
	}

	var gt GroundTruth
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &gt)
	default:
		err = json.Unmarshal(data, &gt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse ground truth: %w", err)
	}

	if len(gt.TestCases) == 0 {
		return nil, fmt.Errorf("ground truth %s contains no test cases", path)
	}

	return &gt, nil
}
