package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/modules"
	"github.com/roach88/vmesh/internal/pipeline"
	"github.com/roach88/vmesh/internal/store"
	"github.com/roach88/vmesh/internal/testutil"
)

// DefaultSession is the session ID used when a scenario names none.
const DefaultSession = "test-session"

// Harness holds the per-scenario runtime: a fresh Context journaling into
// an in-memory store.
type Harness struct {
	store   *store.Store
	ctx     *engine.Context
	session string
	logger  *slog.Logger
}

// New creates a harness with its own in-memory journal, a Context with the
// built-in modules loaded, and deterministic instance IDs.
func New(session string) (*Harness, error) {
	if session == "" {
		session = DefaultSession
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	logger := slog.New(slog.DiscardHandler)
	c := engine.New(
		engine.WithLogger(logger),
		engine.WithJournal(st),
		engine.WithSession(session),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("inst")),
	)
	if err := modules.LoadBuiltin(c); err != nil {
		_ = c.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}

	return &Harness{store: st, ctx: c, session: session, logger: logger}, nil
}

// Context returns the harness Context, for loading extra modules.
func (h *Harness) Context() *engine.Context { return h.ctx }

// Close releases the Context and the store.
func (h *Harness) Close() error {
	return errors.Join(h.ctx.Close(), h.store.Close())
}

// Run executes a test scenario in a fresh harness and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory journal and Context
// 2. Load, validate and instantiate the pipeline
// 3. Run it
// 4. Check the outcome and evaluate assertions against the journal
func Run(scenario *Scenario) (*Result, error) {
	h, err := New(scenario.Session)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.Run(scenario)
}

// Run executes a scenario on this harness.
// Errors are returned for scenarios that cannot be executed at all (bad
// pipeline file, unknown algorithm); pipeline run failures are part of the
// Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	p, err := pipeline.LoadFile(scenario.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}

	b, err := pipeline.Instantiate(h.ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate pipeline: %w", err)
	}
	defer b.Release()

	ctx := context.Background()
	runErr := b.Run(ctx)

	result := NewResult()
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	records, err := h.store.ReadSession(ctx, h.session)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	for _, rec := range records {
		result.Trace = append(result.Trace, traceEvent(rec))
	}

	checkOutcome(result, scenario.Expect, runErr)

	actx := &AssertionContext{Build: b}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished", "scenario", scenario.Name, "pass", result.Pass)
	return result, nil
}

func traceEvent(rec engine.RunRecord) TraceEvent {
	ev := TraceEvent{
		Seq:       rec.Seq,
		Step:      rec.Name,
		Algorithm: rec.Algorithm,
		Status:    rec.Status,
		Inputs:    rec.Inputs,
		Outputs:   rec.Outputs,
	}
	if rec.ErrorCode != engine.CodeOK {
		ev.ErrorCode = rec.ErrorCode.String()
	}
	if len(ev.Inputs) == 0 {
		ev.Inputs = nil
	}
	if len(ev.Outputs) == 0 {
		ev.Outputs = nil
	}
	return ev
}

// checkOutcome compares how the run ended with what the scenario expects.
func checkOutcome(result *Result, want Outcome, runErr error) {
	if want.Status != engine.StatusFailed {
		if runErr != nil {
			result.AddError(fmt.Sprintf("expected pipeline to succeed, got: %v", runErr))
		}
		return
	}

	if runErr == nil {
		result.AddError("expected pipeline to fail, but it succeeded")
		return
	}
	if want.Step != "" {
		var se *pipeline.StepError
		if !errors.As(runErr, &se) || se.Step != want.Step {
			result.AddError(fmt.Sprintf("expected step %s to fail, got: %v", want.Step, runErr))
		}
	}
	if want.ErrorCode != "" {
		if got := engine.CodeOf(runErr).String(); got != want.ErrorCode {
			result.AddError(fmt.Sprintf("expected error code %s, got %s", want.ErrorCode, got))
		}
	}
}
