package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Durations are not part of the trace, so snapshots are stable across runs.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Session      string       `json:"session"`
	Pass         bool         `json:"pass"`
	RunError     string       `json:"run_error,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// Marshal renders the snapshot as indented JSON. encoding/json sorts map
// keys, which keeps slot maps in a fixed order.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := assertSnapshot(t, NewSnapshot(scenario, result)); err != nil {
		return nil, err
	}
	return result, nil
}

// NewSnapshot captures a scenario result for golden comparison.
func NewSnapshot(scenario *Scenario, result *Result) *TraceSnapshot {
	session := scenario.Session
	if session == "" {
		session = DefaultSession
	}
	return &TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      session,
		Pass:         result.Pass,
		RunError:     result.RunError,
		Trace:        result.Trace,
	}
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	return assertSnapshot(t, &TraceSnapshot{
		ScenarioName: scenarioName,
		Session:      DefaultSession,
		Pass:         result.Pass,
		RunError:     result.RunError,
		Trace:        result.Trace,
	})
}

func assertSnapshot(t *testing.T, snapshot *TraceSnapshot) error {
	t.Helper()

	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, snapshot.ScenarioName, data)
	return nil
}
