package engine

import "fmt"

// Type binds the Go representation T to a registered (type, format) pair,
// giving typed access to Data handles.
//
//	var Double = engine.NewType[*float64]("double", "")
//	v, err := engine.Get(d, Double)
type Type[T any] struct {
	key FormatKey
}

// NewType declares the binding. It does not register anything.
func NewType[T any](typeName, format string) Type[T] {
	return Type[T]{key: Key(typeName, format)}
}

// Key returns the bound (type, format) pair.
func (t Type[T]) Key() FormatKey { return t.key }

// IsType reports whether d currently is t's representation and its
// instance has Go type T. Exact match only.
func IsType[T any](d *Data, t Type[T]) bool {
	if d == nil || !d.Is(t.key) || d.Released() {
		return false
	}
	_, ok := d.value.(T)
	return ok
}

// Get returns d's instance as T, converting through a cached conversion
// when d is not already t's representation.
func Get[T any](d *Data, t Type[T]) (T, error) {
	if IsType(d, t) {
		return d.value.(T), nil
	}
	return GetConverted(d, t)
}

// GetConverted always goes through the conversion cache, for consumers that
// want one canonical representation whatever the producer made.
func GetConverted[T any](d *Data, t Type[T]) (T, error) {
	var zero T
	if d == nil {
		return zero, newError(CodeInvalidArgument, t.key, "nil data")
	}

	var (
		conv *Data
		err  error
	)
	if d.Is(t.key) {
		conv = d
	} else {
		conv, err = d.Converted(t.key)
		if err != nil {
			return zero, err
		}
	}

	v, ok := conv.Value().(T)
	if !ok {
		return zero, &Error{
			Code:    CodeNotConvertible,
			Message: fmt.Sprintf("instance of %s is %T, not %T", t.key, conv.Value(), zero),
			Key:     t.key,
		}
	}
	return v, nil
}

// NewValue makes a handle of t's representation and stores v in it.
// T must be the pointer representation the format's constructor returns.
func NewValue[T any](c *Context, t Type[*T], v T) (*Data, error) {
	d, err := c.MakeData(t.key.Type, t.key.Format)
	if err != nil {
		return nil, err
	}
	p, ok := d.Value().(*T)
	if !ok {
		d.drop()
		return nil, newError(CodeInvalidArgument, t.key, "constructor returned %T, not %T", d.value, p)
	}
	*p = v
	return d, nil
}
