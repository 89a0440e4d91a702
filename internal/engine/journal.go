package engine

import (
	"context"
	"time"
)

// Run statuses recorded in the journal.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord describes one finished algorithm run.
type RunRecord struct {
	Seq          int64             `json:"seq"`
	Session      string            `json:"session"`
	InstanceID   string            `json:"instance_id"`
	Name         string            `json:"name,omitempty"`
	Algorithm    string            `json:"algorithm"`
	Status       string            `json:"status"`
	ErrorCode    Code              `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Inputs       map[string]string `json:"inputs"`  // slot -> type[format]
	Outputs      map[string]string `json:"outputs"` // slot -> type[format]
	Duration     time.Duration     `json:"duration_ns"`
}

// Journal records algorithm runs. Implemented by store.Store.
//
// Journal failures are logged by the Context and never fail a run.
type Journal interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

func (c *Context) recordRun(ctx context.Context, a *AlgorithmInstance, rc *RunContext, runErr error, elapsed time.Duration) {
	status := StatusSucceeded
	if runErr != nil {
		status = StatusFailed
	}

	if c.metrics != nil {
		c.metrics.AlgorithmRuns.WithLabelValues(a.tmpl.Name, status).Inc()
		c.metrics.RunDuration.WithLabelValues(a.tmpl.Name).Observe(elapsed.Seconds())
	}

	if c.journal == nil {
		return
	}

	rec := RunRecord{
		Seq:        c.nextSeq(),
		Session:    c.session,
		InstanceID: a.id,
		Name:       a.name,
		Algorithm:  a.tmpl.Name,
		Status:     status,
		Inputs:     make(map[string]string, len(rc.inputs)),
		Outputs:    make(map[string]string, len(a.outputs)),
		Duration:   elapsed,
	}
	for name, d := range rc.inputs {
		rec.Inputs[name] = d.Key().String()
	}
	if runErr == nil {
		for name, d := range a.outputs {
			rec.Outputs[name] = d.Key().String()
		}
	} else {
		rec.ErrorCode = CodeOf(runErr)
		rec.ErrorMessage = runErr.Error()
	}

	if err := c.journal.RecordRun(ctx, rec); err != nil {
		c.logger.Warn("journal write failed", "algorithm", a.tmpl.Name, "error", err)
	}
}
