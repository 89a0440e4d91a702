package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vmesh/internal/engine"
)

// Scenario defines a conformance test for one pipeline.
// It runs the pipeline against the built-in modules and asserts on the
// outcome, the run journal and the values the steps produced.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Pipeline is the pipeline file to run (.yaml, .cue or .hcl).
	// Relative paths are resolved against the scenario file's directory.
	Pipeline string `yaml:"pipeline"`

	// Expect describes how the run ends. Defaults to success.
	Expect Outcome `yaml:"expect,omitempty"`

	// Assertions validate the trace and the step outputs.
	Assertions []Assertion `yaml:"assertions"`

	// Session is the session ID stamped on journal rows.
	// If empty, defaults to "test-session".
	Session string `yaml:"session,omitempty"`
}

// Outcome is the expected end state of a pipeline run.
type Outcome struct {
	// Status is "succeeded" or "failed".
	Status string `yaml:"status"`

	// Step is the step expected to fail (failed runs only).
	Step string `yaml:"step,omitempty"`

	// ErrorCode is the expected engine error code name, e.g.
	// "MISSING_REQUIRED_INPUT" (failed runs only).
	ErrorCode string `yaml:"error_code,omitempty"`
}

// Assertion validates the trace or a step output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a run of Step with Status and a subset of Inputs/Outputs
	// - "trace_order": steps first ran in this order
	// - "trace_count": Step ran exactly Count times
	// - "output": output Output of Step equals Value
	Type string `yaml:"type"`

	// Step is the step name (trace_contains, trace_count, output).
	Step string `yaml:"step,omitempty"`

	// Status is the expected run status (trace_contains).
	Status string `yaml:"status,omitempty"`

	// Inputs are expected slot representations, slot -> "type[format]"
	// (trace_contains). Subset match.
	Inputs map[string]string `yaml:"inputs,omitempty"`

	// Outputs are expected output representations (trace_contains).
	Outputs map[string]string `yaml:"outputs,omitempty"`

	// Steps is the expected run order (trace_order).
	Steps []string `yaml:"steps,omitempty"`

	// Count is the expected number of runs (trace_count).
	Count int `yaml:"count,omitempty"`

	// Output is the output slot name (output).
	Output string `yaml:"output,omitempty"`

	// Value is the expected output value (output). Built-in scalar types
	// only.
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertOutput        = "output"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Pipeline != "" && !filepath.IsAbs(scenario.Pipeline) {
		scenario.Pipeline = filepath.Join(filepath.Dir(path), scenario.Pipeline)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if _, err := os.Stat(s.Pipeline); os.IsNotExist(err) {
		return fmt.Errorf("pipeline file not found: %s", s.Pipeline)
	}

	switch s.Expect.Status {
	case "", engine.StatusSucceeded:
		if s.Expect.Step != "" || s.Expect.ErrorCode != "" {
			return fmt.Errorf("expect: step and error_code apply to failed runs only")
		}
	case engine.StatusFailed:
		if s.Expect.ErrorCode != "" {
			if _, ok := engine.ParseCode(s.Expect.ErrorCode); !ok {
				return fmt.Errorf("expect: unknown error code %q", s.Expect.ErrorCode)
			}
		}
	default:
		return fmt.Errorf("expect: unknown status %q", s.Expect.Status)
	}

	if len(s.Assertions) == 0 && s.Expect.Status != engine.StatusFailed {
		return fmt.Errorf("assertions list is required for succeeding scenarios")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertOutput:
		if a.Step == "" || a.Output == "" {
			return fmt.Errorf("assertions[%d]: step and output are required for output", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for output", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
