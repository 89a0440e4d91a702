package harness

// TraceEvent is one journaled algorithm run, stripped of timing so traces
// compare byte for byte across runs.
type TraceEvent struct {
	Seq       int64             `json:"seq"`
	Step      string            `json:"step"`
	Algorithm string            `json:"algorithm"`
	Status    string            `json:"status"`
	ErrorCode string            `json:"error_code,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the expected outcome was met and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace lists the algorithm runs in journal order, pulled sources
	// included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunError is the pipeline error, if the run failed.
	RunError string `json:"run_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
