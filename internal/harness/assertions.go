package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/pipeline"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s (%s) %s\n", event.Seq, event.Step, event.Algorithm, event.Status)
		}
	}
	return buf.String()
}

// assertTraceContains checks if the trace contains a run of the step with
// the given status and slot representations (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Step != assertion.Step {
			continue
		}
		if assertion.Status != "" && event.Status != assertion.Status {
			continue
		}
		if matchSlots(event.Inputs, assertion.Inputs) && matchSlots(event.Outputs, assertion.Outputs) {
			return nil
		}
	}

	expected := "step " + assertion.Step
	if assertion.Status != "" {
		expected += " " + assertion.Status
	}
	if len(assertion.Inputs) > 0 {
		expected += " with inputs " + formatSlots(assertion.Inputs)
	}
	if len(assertion.Outputs) > 0 {
		expected += " with outputs " + formatSlots(assertion.Outputs)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that steps first ran in the specified order.
// Steps don't need to be consecutive (intervening runs are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Step]; !seen {
			positions[event.Step] = i + 1 // 1-indexed for readability
		}
	}

	for _, step := range assertion.Steps {
		if positions[step] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all steps present: %v", assertion.Steps),
				Actual:   fmt.Sprintf("missing step: %s", step),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Steps); i++ {
		prev, curr := assertion.Steps[i-1], assertion.Steps[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("steps in order: %v", assertion.Steps),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the step ran exactly the specified number of
// times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Step == assertion.Step {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d runs of %s", assertion.Count, assertion.Step),
			Actual:   fmt.Sprintf("%d runs", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertOutput reads a built-in scalar output of a step and compares it
// with the expected value.
func assertOutput(b *pipeline.Build, assertion Assertion) error {
	inst, ok := b.Instance(assertion.Step)
	if !ok {
		return fmt.Errorf("output assertion: unknown step %q", assertion.Step)
	}

	d, ok := inst.Output(assertion.Output)
	if !ok {
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("output %s.%s to be set", assertion.Step, assertion.Output),
			Actual:   fmt.Sprintf("step is %s with outputs %v", inst.State(), inst.OutputNames()),
		}
	}

	actual, err := scalarValue(d)
	if err != nil {
		return fmt.Errorf("output assertion %s.%s: %w", assertion.Step, assertion.Output, err)
	}
	if !valuesEqual(actual, assertion.Value) {
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("%s.%s = %v (type %T)", assertion.Step, assertion.Output, assertion.Value, assertion.Value),
			Actual:   fmt.Sprintf("%v (type %T, %s)", actual, actual, d.Key()),
		}
	}
	return nil
}

// scalarValue unwraps a handle of one of the built-in types.
func scalarValue(d *engine.Data) (any, error) {
	switch {
	case engine.IsType(d, engine.Int):
		v, err := engine.Get(d, engine.Int)
		if err != nil {
			return nil, err
		}
		return *v, nil
	case engine.IsType(d, engine.Double):
		v, err := engine.Get(d, engine.Double)
		if err != nil {
			return nil, err
		}
		return *v, nil
	case engine.IsType(d, engine.Bool):
		v, err := engine.Get(d, engine.Bool)
		if err != nil {
			return nil, err
		}
		return *v, nil
	case engine.IsType(d, engine.String):
		v, err := engine.Get(d, engine.String)
		if err != nil {
			return nil, err
		}
		return *v, nil
	default:
		return nil, fmt.Errorf("%s is not a built-in scalar type", d.Key())
	}
}

// matchSlots checks if actual contains all expected slots (subset match).
func matchSlots(actual, expected map[string]string) bool {
	for slot, key := range expected {
		if actual[slot] != key {
			return false
		}
	}
	return true
}

func formatSlots(slots map[string]string) string {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + slots[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// valuesEqual compares an output value with a YAML-decoded expectation.
// Numbers compare by value, so `value: 2` matches a double output of 2.0.
func valuesEqual(actual, expected any) bool {
	if af, ok := toFloat(actual); ok {
		ef, ok := toFloat(expected)
		return ok && af == ef
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// AssertionContext provides the pipeline build output assertions read.
type AssertionContext struct {
	Build *pipeline.Build
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertOutput:
			if actx == nil || actx.Build == nil {
				err = fmt.Errorf("assertion[%d]: output requires a pipeline build", i)
			} else {
				err = assertOutput(actx.Build, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
