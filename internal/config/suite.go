package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SuiteEntry is one run target in a suite file: a directory to evaluate in,
// a prompt file describing the task, and the optional branch / ground-truth
// patch the run phase accepts directly.
type SuiteEntry struct {
	Directory  string `yaml:"directory"`
	PromptFile string `yaml:"prompt_file"`
	Branch     string `yaml:"branch,omitempty"`
	GTPatch    string `yaml:"gt_patch,omitempty"`
}

// Suite is a sequentially-processed batch of run targets. Concurrency
// across entries is deliberately not supported — see spec Non-goals.
type Suite struct {
	Entries []SuiteEntry `yaml:"runs"`
}

// LoadSuite reads and validates a suite YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite YAML: %w", err)
	}

	if len(s.Entries) == 0 {
		return nil, fmt.Errorf("suite file has no runs")
	}
	for i, entry := range s.Entries {
		if entry.Directory == "" {
			return nil, fmt.Errorf("runs[%d]: directory is required", i)
		}
		if entry.PromptFile == "" {
			return nil, fmt.Errorf("runs[%d]: prompt_file is required", i)
		}
	}

	return &s, nil
}
