package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/vmesh/internal/engine"
)

// StepError ties a failure to the step it happened in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Build is a pipeline wired into algorithm instances of one Context.
type Build struct {
	Pipeline *Pipeline

	logger    *slog.Logger
	instances []*engine.AlgorithmInstance
	byName    map[string]*engine.AlgorithmInstance
}

// Instantiate creates one algorithm instance per step and wires literals,
// links and default sources. Algorithm and slot names are checked against
// c's registries here; on error nothing is left allocated.
func Instantiate(c *engine.Context, p *Pipeline) (*Build, error) {
	if errs := Validate(p); len(errs) > 0 {
		return nil, joinValidation("", errs)
	}

	b := &Build{
		Pipeline: p,
		logger:   c.Logger().With("pipeline", p.Name),
		byName:   make(map[string]*engine.AlgorithmInstance, len(p.Steps)),
	}

	for _, s := range p.Steps {
		inst, err := c.NewAlgorithm(s.Algorithm)
		if err != nil {
			b.Release()
			return nil, &StepError{Step: s.Name, Err: err}
		}
		inst.SetName(s.Name)
		b.instances = append(b.instances, inst)
		b.byName[s.Name] = inst
	}

	for i, s := range p.Steps {
		if err := b.wire(i, s); err != nil {
			b.Release()
			return nil, &StepError{Step: s.Name, Err: err}
		}
	}
	return b, nil
}

func (b *Build) wire(i int, s Step) error {
	inst := b.instances[i]

	for _, in := range s.Inputs {
		if in.From != nil {
			if err := inst.SetInputFrom(in.Name, b.byName[in.From.Step], in.From.Output); err != nil {
				return err
			}
			continue
		}
		if err := inst.SetInput(in.Name, in.Value); err != nil {
			return err
		}
	}

	switch {
	case s.DefaultSource != "":
		inst.SetDefaultSource(b.byName[s.DefaultSource])
	case b.Pipeline.Chain && i > 0:
		inst.SetDefaultSource(b.instances[i-1])
	}
	return nil
}

// Run runs the steps in declaration order and stops at the first failure.
// A step already pulled by a later one is not run again.
func (b *Build) Run(ctx context.Context) error {
	start := time.Now()
	b.logger.Info("pipeline started", "steps", len(b.instances))

	for _, inst := range b.instances {
		if inst.Succeeded() {
			continue
		}
		if err := inst.Run(ctx); err != nil {
			b.logger.Warn("pipeline failed", "step", inst.Name(), "error", err)
			return &StepError{Step: inst.Name(), Err: err}
		}
	}

	b.logger.Info("pipeline finished", "duration", time.Since(start))
	return nil
}

// Instance returns the instance of a step.
func (b *Build) Instance(step string) (*engine.AlgorithmInstance, bool) {
	inst, ok := b.byName[step]
	return inst, ok
}

// Instances returns the instances in step order.
func (b *Build) Instances() []*engine.AlgorithmInstance {
	return append([]*engine.AlgorithmInstance(nil), b.instances...)
}

// Release drops every binding and output the steps hold.
func (b *Build) Release() {
	for _, inst := range b.instances {
		inst.Release()
	}
}
