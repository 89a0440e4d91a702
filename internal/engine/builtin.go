package engine

import (
	"fmt"
	"math"
)

// Built-in logical types.
const (
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeDouble = "double"
	TypeString = "string"
)

// Typed bindings of the built-in types.
var (
	Bool   = NewType[*bool](TypeBool, DefaultFormat)
	Int    = NewType[*int](TypeInt, DefaultFormat)
	Double = NewType[*float64](TypeDouble, DefaultFormat)
	String = NewType[*string](TypeString, DefaultFormat)
)

func makeOf[T any]() MakeFunc {
	return func() (any, error) { return new(T), nil }
}

func registerBuiltins(c *Context) {
	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("engine: builtin registration: %v", err))
		}
	}

	must(c.RegisterDataType(TypeBool, DefaultFormat, makeOf[bool](), nil))
	must(c.RegisterDataType(TypeInt, DefaultFormat, makeOf[int](), nil))
	must(c.RegisterDataType(TypeDouble, DefaultFormat, makeOf[float64](), nil))
	must(c.RegisterDataType(TypeString, DefaultFormat, makeOf[string](), nil))

	must(c.RegisterConversion(TypeInt, DefaultFormat, TypeDouble, DefaultFormat, intToDouble))
	must(c.RegisterConversion(TypeDouble, DefaultFormat, TypeInt, DefaultFormat, doubleToInt))
}

func intToDouble(from, to any) error {
	*to.(*float64) = float64(*from.(*int))
	return nil
}

// doubleToInt truncates toward zero.
func doubleToInt(from, to any) error {
	f := *from.(*float64)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("cannot represent %v as int", f)
	}
	*to.(*int) = int(f)
	return nil
}

// Literal wraps a plain Go value in a handle of the matching built-in type.
// Supported: bool, int, int64, float64, string. A *Data is retained and
// returned as is.
func (c *Context) Literal(v any) (*Data, error) {
	switch val := v.(type) {
	case *Data:
		if val == nil {
			return nil, newError(CodeInvalidArgument, FormatKey{}, "nil data")
		}
		return val.Retain(), nil
	case bool:
		return NewValue(c, Bool, val)
	case int:
		return NewValue(c, Int, val)
	case int64:
		return NewValue(c, Int, int(val))
	case float64:
		return NewValue(c, Double, val)
	case string:
		return NewValue(c, String, val)
	default:
		return nil, newError(CodeInvalidArgument, FormatKey{}, "unsupported literal type %T", v)
	}
}
