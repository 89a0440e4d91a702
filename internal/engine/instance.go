package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle state of an AlgorithmInstance.
type State int

const (
	// StateConstructed: created, nothing wired yet.
	StateConstructed State = iota
	// StateWired: inputs changed since the last run.
	StateWired
	// StateRunning: inside Run.
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateWired:
		return "wired"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// binding is an explicitly wired input: either a data reference or a link
// to another instance's output.
type binding struct {
	data   *Data
	source *AlgorithmInstance
	output string
}

func (b *binding) release() {
	if b.data != nil {
		b.data.drop()
		b.data = nil
	}
}

// AlgorithmInstance is one runnable algorithm with named input and output
// slots.
//
// Inputs resolve in this order at run time:
//  1. an explicit SetInput / SetInputFrom binding
//  2. the default source's output of the same name, if it declares one
//  3. the slot's declared default literal
//  4. otherwise the slot is invalid; required slots fail the run
//
// Sources are pulled: a source that has not succeeded since it was last
// rewired runs first, one that has is never re-run.
type AlgorithmInstance struct {
	ctx  *Context
	tmpl *AlgorithmTemplate
	body Algorithm
	id   string
	name string

	inputs        map[string]*binding
	defaultSource *AlgorithmInstance
	outputs       map[string]*Data

	state   State
	lastErr error
}

// NewAlgorithm instantiates the template registered under name.
func (c *Context) NewAlgorithm(name string) (*AlgorithmInstance, error) {
	tmpl, err := c.AlgorithmTemplate(name)
	if err != nil {
		return nil, err
	}
	body := tmpl.New()
	if body == nil {
		return nil, &Error{Code: CodeInvalidArgument, Message: "algorithm factory returned nil", Algorithm: tmpl.Name}
	}
	return &AlgorithmInstance{
		ctx:     c,
		tmpl:    tmpl,
		body:    body,
		id:      c.ids.Generate(),
		inputs:  make(map[string]*binding),
		outputs: make(map[string]*Data),
	}, nil
}

// ID returns the instance's unique ID.
func (a *AlgorithmInstance) ID() string { return a.id }

// Name returns the label set with SetName, defaulting to the template name.
func (a *AlgorithmInstance) Name() string {
	if a.name != "" {
		return a.name
	}
	return a.tmpl.Name
}

// SetName labels the instance in logs and journal records.
func (a *AlgorithmInstance) SetName(name string) { a.name = name }

// Template returns the instance's template.
func (a *AlgorithmInstance) Template() *AlgorithmTemplate { return a.tmpl }

// State returns the lifecycle state.
func (a *AlgorithmInstance) State() State { return a.state }

// Succeeded reports whether the last run succeeded and nothing was rewired
// since.
func (a *AlgorithmInstance) Succeeded() bool { return a.state == StateSucceeded }

// Err returns the error of the last failed run.
func (a *AlgorithmInstance) Err() error { return a.lastErr }

// SetInput binds a slot to a *Data (retained) or a literal
// (see Context.Literal).
func (a *AlgorithmInstance) SetInput(name string, value any) error {
	if _, ok := a.tmpl.Input(name); !ok {
		return a.slotError(CodeInvalidArgument, name, "unknown input slot", nil)
	}
	d, err := a.ctx.Literal(value)
	if err != nil {
		return a.slotError(CodeInvalidArgument, name, "invalid input value", err)
	}
	a.bind(name, &binding{data: d})
	return nil
}

// SetInputFrom links a slot to an output of another instance. The source is
// pulled when this instance runs.
func (a *AlgorithmInstance) SetInputFrom(name string, source *AlgorithmInstance, output string) error {
	if _, ok := a.tmpl.Input(name); !ok {
		return a.slotError(CodeInvalidArgument, name, "unknown input slot", nil)
	}
	if source == nil {
		return a.slotError(CodeInvalidArgument, name, "nil source", nil)
	}
	if _, ok := source.tmpl.Output(output); !ok {
		return a.slotError(CodeInvalidArgument, name, fmt.Sprintf("source %s has no output %q", source.Name(), output), nil)
	}
	a.bind(name, &binding{source: source, output: output})
	return nil
}

// UnsetInput removes an explicit binding.
func (a *AlgorithmInstance) UnsetInput(name string) {
	if b, ok := a.inputs[name]; ok {
		b.release()
		delete(a.inputs, name)
		a.markWired()
	}
}

// SetDefaultSource makes source supply every unbound input for which it
// declares an output of the same name. nil clears it.
func (a *AlgorithmInstance) SetDefaultSource(source *AlgorithmInstance) {
	a.defaultSource = source
	a.markWired()
}

// DefaultSource returns the configured default source.
func (a *AlgorithmInstance) DefaultSource() *AlgorithmInstance { return a.defaultSource }

func (a *AlgorithmInstance) bind(name string, b *binding) {
	if old, ok := a.inputs[name]; ok {
		old.release()
	}
	a.inputs[name] = b
	a.markWired()
}

func (a *AlgorithmInstance) markWired() {
	if a.state != StateRunning {
		a.state = StateWired
	}
}

// Output returns an output of the last successful run. The instance keeps
// ownership; Retain it to keep it past the next run.
func (a *AlgorithmInstance) Output(name string) (*Data, bool) {
	d, ok := a.outputs[name]
	return d, ok
}

// OutputNames returns the names of the produced outputs in declaration order.
func (a *AlgorithmInstance) OutputNames() []string {
	var names []string
	for _, o := range a.tmpl.Outputs {
		if _, ok := a.outputs[o.Name]; ok {
			names = append(names, o.Name)
		}
	}
	return names
}

// GetOutput reads an output as T with the same conversion rules as inputs.
func GetOutput[T any](a *AlgorithmInstance, name string, t Type[T]) (T, error) {
	var zero T
	d, ok := a.outputs[name]
	if !ok {
		return zero, a.slotError(CodeInvalidArgument, name, "output not produced", nil)
	}
	v, err := Get(d, t)
	if err != nil {
		return zero, &Error{Code: CodeNotConvertible, Message: "output not convertible", Algorithm: a.tmpl.Name, Slot: name, Key: t.Key(), Err: err}
	}
	return v, nil
}

// Release drops every binding and output held by the instance.
func (a *AlgorithmInstance) Release() {
	for name, b := range a.inputs {
		b.release()
		delete(a.inputs, name)
	}
	a.clearOutputs()
	a.defaultSource = nil
}

func (a *AlgorithmInstance) clearOutputs() {
	for name, d := range a.outputs {
		d.drop()
		delete(a.outputs, name)
	}
}

// Run resolves the inputs, pulling sources as needed, and runs the body.
//
// Previous outputs are discarded first. On failure no outputs are set, the
// instance is StateFailed and the error is returned; the Context is left
// intact and the instance may be rewired and run again.
func (a *AlgorithmInstance) Run(ctx context.Context) error {
	if err := a.checkCycles(); err != nil {
		a.state = StateFailed
		a.lastErr = err
		return err
	}
	return a.run(ctx, make(map[*AlgorithmInstance]bool))
}

func (a *AlgorithmInstance) run(ctx context.Context, visiting map[*AlgorithmInstance]bool) error {
	if visiting[a] {
		return &Error{Code: CodeCyclicDependency, Message: "instance reached again while resolving its own inputs", Algorithm: a.tmpl.Name}
	}
	visiting[a] = true
	defer delete(visiting, a)

	a.clearOutputs()
	a.state = StateRunning
	a.lastErr = nil
	start := time.Now()

	rc := &RunContext{
		ctx:     ctx,
		inst:    a,
		inputs:  make(map[string]*Data),
		outputs: make(map[string]*Data),
		logger:  a.ctx.logger.With("algorithm", a.tmpl.Name, "instance", a.Name()),
	}
	defer rc.releaseInputs()

	rc.logger.Info("running algorithm")
	err := a.resolveInputs(ctx, rc, visiting)
	if err == nil {
		err = a.runBody(rc)
	}

	if err != nil {
		rc.releaseOutputs()
		a.state = StateFailed
		a.lastErr = err
		rc.logger.Warn("algorithm failed", "error", err)
	} else {
		a.outputs = rc.outputs
		rc.outputs = nil
		a.state = StateSucceeded
		rc.logger.Info("algorithm succeeded", "outputs", len(a.outputs))
	}

	a.ctx.recordRun(ctx, a, rc, err, time.Since(start))
	return err
}

func (a *AlgorithmInstance) runBody(rc *RunContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Code: CodeAlgorithmRunFailed, Message: fmt.Sprintf("algorithm panicked: %v", r), Algorithm: a.tmpl.Name}
		}
	}()

	if err := a.body.Run(rc); err != nil {
		var e *Error
		if errors.As(err, &e) && e.Code == CodeInputConversionFailed {
			return err
		}
		return &Error{Code: CodeAlgorithmRunFailed, Message: "algorithm reported failure", Algorithm: a.tmpl.Name, Err: err}
	}
	return nil
}

func (a *AlgorithmInstance) resolveInputs(ctx context.Context, rc *RunContext, visiting map[*AlgorithmInstance]bool) error {
	for _, spec := range a.tmpl.Inputs {
		d, err := a.resolveSlot(ctx, spec, visiting)
		if err != nil {
			return err
		}
		if d == nil {
			if spec.Required {
				return &Error{Code: CodeMissingRequiredInput, Message: "required input not set", Algorithm: a.tmpl.Name, Slot: spec.Name, Key: spec.Key()}
			}
			continue
		}

		rc.owned = append(rc.owned, d)
		if !spec.accepts(d.Key()) {
			conv, err := d.Get(spec.target())
			if err != nil {
				return &Error{
					Code:      CodeInputConversionFailed,
					Message:   fmt.Sprintf("input of type %s cannot be converted", d.Key()),
					Algorithm: a.tmpl.Name,
					Slot:      spec.Name,
					Key:       spec.target(),
					Err:       err,
				}
			}
			d = conv
		}
		rc.inputs[spec.Name] = d
	}
	return nil
}

// resolveSlot returns a retained reference, or nil when nothing resolves
// the slot.
func (a *AlgorithmInstance) resolveSlot(ctx context.Context, spec ParamSpec, visiting map[*AlgorithmInstance]bool) (*Data, error) {
	if b, ok := a.inputs[spec.Name]; ok {
		if b.data != nil {
			return b.data.Retain(), nil
		}
		return a.pull(ctx, spec.Name, b.source, b.output, visiting)
	}

	if src := a.defaultSource; src != nil {
		if _, declared := src.tmpl.Output(spec.Name); declared {
			d, err := a.pull(ctx, spec.Name, src, spec.Name, visiting)
			if err != nil {
				return nil, err
			}
			if d != nil {
				return d, nil
			}
		}
	}

	if spec.Default != nil {
		d, err := a.ctx.Literal(spec.Default)
		if err != nil {
			return nil, a.slotError(CodeInvalidArgument, spec.Name, "invalid default literal", err)
		}
		return d, nil
	}
	return nil, nil
}

func (a *AlgorithmInstance) pull(ctx context.Context, slot string, src *AlgorithmInstance, output string, visiting map[*AlgorithmInstance]bool) (*Data, error) {
	if src.state != StateSucceeded {
		a.ctx.logger.Debug("pulling source", "algorithm", a.tmpl.Name, "slot", slot, "source", src.Name())
		if err := src.run(ctx, visiting); err != nil {
			var e *Error
			if errors.As(err, &e) && e.Code == CodeCyclicDependency {
				return nil, err
			}
			return nil, &Error{
				Code:      CodeAlgorithmRunFailed,
				Message:   fmt.Sprintf("source %s failed", src.Name()),
				Algorithm: a.tmpl.Name,
				Slot:      slot,
				Err:       err,
			}
		}
	}
	d, ok := src.outputs[output]
	if !ok {
		return nil, nil
	}
	return d.Retain(), nil
}

// checkCycles walks default sources and links before anything runs.
func (a *AlgorithmInstance) checkCycles() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*AlgorithmInstance]int)

	var visit func(n *AlgorithmInstance) error
	visit = func(n *AlgorithmInstance) error {
		color[n] = grey
		for _, dep := range n.dependencies() {
			switch color[dep] {
			case grey:
				return &Error{
					Code:      CodeCyclicDependency,
					Message:   fmt.Sprintf("%s depends on %s which depends back on it", n.Name(), dep.Name()),
					Algorithm: a.tmpl.Name,
				}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}
	return visit(a)
}

func (a *AlgorithmInstance) dependencies() []*AlgorithmInstance {
	var deps []*AlgorithmInstance
	if a.defaultSource != nil {
		deps = append(deps, a.defaultSource)
	}
	for _, spec := range a.tmpl.Inputs {
		if b, ok := a.inputs[spec.Name]; ok && b.source != nil {
			deps = append(deps, b.source)
		}
	}
	return deps
}

func (a *AlgorithmInstance) slotError(code Code, slot, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Algorithm: a.tmpl.Name, Slot: slot, Err: err}
}
