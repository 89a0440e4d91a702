package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/testutil"
)

// TestStore_AsEngineJournal runs algorithms against a Context journaling
// into the store.
func TestStore_AsEngineJournal(t *testing.T) {
	s := createTestStore(t)
	c := engine.New(
		engine.WithLogger(slog.New(slog.DiscardHandler)),
		engine.WithJournal(s),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("inst")),
		engine.WithSession("session-journal"),
	)
	defer c.Close()

	err := c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name:    "negate",
		Inputs:  []engine.ParamSpec{{Name: "x", Type: engine.TypeDouble, Required: true}},
		Outputs: []engine.OutputSpec{{Name: "y", Type: engine.TypeDouble}},
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				x, _, err := engine.Input(rc, "x", engine.Double)
				if err != nil {
					return err
				}
				return engine.SetOutputValue(rc, "y", engine.Double, -*x)
			})
		},
	})
	if err != nil {
		t.Fatalf("RegisterAlgorithm() failed: %v", err)
	}

	a, err := c.NewAlgorithm("negate")
	if err != nil {
		t.Fatalf("NewAlgorithm() failed: %v", err)
	}
	defer a.Release()

	if err := a.Run(context.Background()); err == nil {
		t.Fatal("Run() without x should fail")
	}
	if err := a.SetInput("x", 2); err != nil {
		t.Fatalf("SetInput() failed: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got, err := s.ReadSession(context.Background(), "session-journal")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("journal has %d runs, want 2", len(got))
	}
	if got[0].Status != engine.StatusFailed || got[0].ErrorCode != engine.CodeMissingRequiredInput {
		t.Errorf("first run = %s/%v, want failed/MISSING_REQUIRED_INPUT", got[0].Status, got[0].ErrorCode)
	}
	if got[1].Status != engine.StatusSucceeded || got[1].Inputs["x"] != "double" || got[1].Outputs["y"] != "double" {
		t.Errorf("second run = %+v", got[1])
	}
}
