package engine

import (
	"errors"
	"fmt"
)

// Data is an opaque, reference-counted handle around one instance of a
// registered binary format.
//
// The handle owns its instance: the format's destructor runs exactly once,
// when the last reference is released. Converted representations requested
// through Get or Converted are cached per target key and owned the same way.
//
// Data is not safe for concurrent use.
type Data struct {
	ctx   *Context
	tmpl  *FormatTemplate
	value any
	refs  int
	cache map[FormatKey]*Data

	// parent is set on cached conversions; they die with their parent.
	parent *Data
}

// TypeName returns the logical type of the current representation.
func (d *Data) TypeName() string { return d.tmpl.key.Type }

// BinaryFormat returns the binary format of the current representation.
func (d *Data) BinaryFormat() string { return d.tmpl.key.Format }

// Key returns the (type, format) pair of the current representation.
func (d *Data) Key() FormatKey { return d.tmpl.key }

// Value returns the raw instance. It panics on a released handle.
func (d *Data) Value() any {
	if d.refs <= 0 {
		panic(fmt.Sprintf("engine: use of released data %s", d.tmpl.key))
	}
	return d.value
}

// Is reports whether the current representation is exactly key.
// There is no implicit widening between formats.
func (d *Data) Is(key FormatKey) bool {
	return d.tmpl.key == key
}

// Get returns d itself when it already is key, and a cached conversion
// otherwise.
func (d *Data) Get(key FormatKey) (*Data, error) {
	if d.Is(key) {
		return d, nil
	}
	return d.Converted(key)
}

// Converted returns the representation of d converted to key, running the
// conversion at most once per target. The result is owned by d and stays
// valid until d is released; callers must not release it.
func (d *Data) Converted(key FormatKey) (*Data, error) {
	if d.refs <= 0 {
		return nil, newError(CodeInvalidArgument, d.tmpl.key, "data already released")
	}
	if cached, ok := d.cache[key]; ok {
		return cached, nil
	}

	converted, err := d.ctx.ConvertTo(d, key.Type, key.Format)
	if err != nil {
		return nil, &Error{
			Code:    CodeNotConvertible,
			Message: fmt.Sprintf("cannot convert %s to %s", d.tmpl.key, key),
			Key:     key,
			Err:     err,
		}
	}

	if d.cache == nil {
		d.cache = make(map[FormatKey]*Data)
	}
	converted.parent = d
	d.cache[key] = converted
	return converted, nil
}

// CachedConversions returns the number of converted representations held.
func (d *Data) CachedConversions() int {
	return len(d.cache)
}

// Retain adds a reference to d.
func (d *Data) Retain() *Data {
	if d.refs <= 0 {
		panic(fmt.Sprintf("engine: retain of released data %s", d.tmpl.key))
	}
	d.refs++
	return d
}

// Release drops one reference. On the last release the cached conversions
// and then the instance itself are destroyed.
func (d *Data) Release() error {
	if d.refs <= 0 {
		return newError(CodeInvalidArgument, d.tmpl.key, "data already released")
	}
	d.refs--
	if d.refs > 0 {
		return nil
	}
	return d.destroy()
}

// drop releases d on behalf of the runtime, which has no caller to hand a
// destructor failure to, so the failure is logged.
func (d *Data) drop() {
	if err := d.Release(); err != nil {
		d.ctx.logger.Warn("release data failed", "type", d.tmpl.key.String(), "error", err)
	}
}

// Released reports whether the last reference has been dropped.
func (d *Data) Released() bool {
	return d.refs <= 0
}

func (d *Data) destroy() error {
	var errs []error
	for key, cached := range d.cache {
		if err := cached.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release cached %s: %w", key, err))
		}
	}
	d.cache = nil

	if err := d.tmpl.destruct(d.value); err != nil {
		errs = append(errs, fmt.Errorf("destruct %s: %w", d.tmpl.key, err))
	}
	d.value = nil
	d.ctx.forget(d)
	return errors.Join(errs...)
}
