package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// RunContext is handed to an Algorithm body for the duration of one run.
type RunContext struct {
	ctx     context.Context
	inst    *AlgorithmInstance
	inputs  map[string]*Data
	outputs map[string]*Data
	owned   []*Data
	logger  *slog.Logger
}

// Context returns the context.Context passed to Run. It carries values
// only; runs are never cancelled.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// Engine returns the owning Context, for making data and converting.
func (rc *RunContext) Engine() *Context { return rc.inst.ctx }

// Logger returns a logger tagged with the algorithm and instance.
func (rc *RunContext) Logger() *slog.Logger { return rc.logger }

// Valid reports whether an input slot resolved to data.
func (rc *RunContext) Valid(name string) bool {
	_, ok := rc.inputs[name]
	return ok
}

// Input returns the resolved data of a slot, already converted to the
// declared representation.
func (rc *RunContext) Input(name string) (*Data, bool) {
	d, ok := rc.inputs[name]
	return d, ok
}

// Input reads a slot as T. ok is false when the slot is invalid. Conversion
// failures are CodeInputConversionFailed errors naming the slot.
func Input[T any](rc *RunContext, name string, t Type[T]) (v T, ok bool, err error) {
	d, ok := rc.inputs[name]
	if !ok {
		return v, false, nil
	}
	v, err = Get(d, t)
	if err != nil {
		return v, true, rc.conversionError(name, d, t.Key(), err)
	}
	return v, true, nil
}

// InputConverted is Input without the exact-representation fast path.
func InputConverted[T any](rc *RunContext, name string, t Type[T]) (v T, ok bool, err error) {
	d, ok := rc.inputs[name]
	if !ok {
		return v, false, nil
	}
	v, err = GetConverted(d, t)
	if err != nil {
		return v, true, rc.conversionError(name, d, t.Key(), err)
	}
	return v, true, nil
}

// InputOr reads an optional scalar slot, returning fallback when invalid.
func InputOr[T any](rc *RunContext, name string, t Type[*T], fallback T) (T, error) {
	p, ok, err := Input(rc, name, t)
	if err != nil || !ok {
		return fallback, err
	}
	return *p, nil
}

func (rc *RunContext) conversionError(slot string, d *Data, key FormatKey, err error) error {
	return &Error{
		Code:      CodeInputConversionFailed,
		Message:   fmt.Sprintf("input of type %s cannot be read as %s", d.Key(), key),
		Algorithm: rc.inst.tmpl.Name,
		Slot:      slot,
		Key:       key,
		Err:       err,
	}
}

// SetOutput stores d in a declared output slot, taking over the caller's
// reference. Pass d.Retain() to publish data the caller keeps using.
func (rc *RunContext) SetOutput(name string, d *Data) error {
	if _, ok := rc.inst.tmpl.Output(name); !ok {
		return rc.inst.slotError(CodeInvalidArgument, name, "unknown output slot", nil)
	}
	if d == nil {
		return rc.inst.slotError(CodeInvalidArgument, name, "nil output", nil)
	}
	if old, ok := rc.outputs[name]; ok {
		old.drop()
	}
	rc.outputs[name] = d
	return nil
}

// NewOutput makes a handle of the slot's declared representation and
// stores it as the output.
func (rc *RunContext) NewOutput(name string) (*Data, error) {
	spec, ok := rc.inst.tmpl.Output(name)
	if !ok {
		return nil, rc.inst.slotError(CodeInvalidArgument, name, "unknown output slot", nil)
	}
	d, err := rc.inst.ctx.MakeData(spec.Type, spec.Format)
	if err != nil {
		return nil, err
	}
	if err := rc.SetOutput(name, d); err != nil {
		d.drop()
		return nil, err
	}
	return d, nil
}

// SetOutputValue stores v in a fresh handle of t's representation.
func SetOutputValue[T any](rc *RunContext, name string, t Type[*T], v T) error {
	d, err := NewValue(rc.inst.ctx, t, v)
	if err != nil {
		return err
	}
	if err := rc.SetOutput(name, d); err != nil {
		d.drop()
		return err
	}
	return nil
}

func (rc *RunContext) releaseInputs() {
	for _, d := range rc.owned {
		d.drop()
	}
	rc.owned = nil
	rc.inputs = nil
}

func (rc *RunContext) releaseOutputs() {
	for name, d := range rc.outputs {
		d.drop()
		delete(rc.outputs, name)
	}
}
