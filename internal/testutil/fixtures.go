package testutil

import (
	"fmt"

	"github.com/roach88/vmesh/internal/engine"
)

// Counter records constructor, destructor and conversion calls of the
// fixture formats registered by RegisterCounting.
type Counter struct {
	Made        map[engine.FormatKey]int
	Deleted     map[engine.FormatKey]int
	Conversions map[[2]engine.FormatKey]int
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		Made:        make(map[engine.FormatKey]int),
		Deleted:     make(map[engine.FormatKey]int),
		Conversions: make(map[[2]engine.FormatKey]int),
	}
}

// Box is the instance type of every counting format. Value carries a
// payload and Origin the key the value was first written in.
type Box struct {
	Value  int
	Origin engine.FormatKey
}

// RegisterCounting registers typeName in every given format with counting
// constructors and destructors. Instances are *Box.
func (c *Counter) RegisterCounting(r engine.Registrar, typeName string, formats ...string) error {
	for _, f := range formats {
		key := engine.Key(typeName, f)
		mk := func() (any, error) {
			c.Made[key]++
			return &Box{Origin: key}, nil
		}
		del := func(any) error {
			c.Deleted[key]++
			return nil
		}
		if err := r.RegisterDataType(typeName, f, mk, del); err != nil {
			return fmt.Errorf("register %s: %w", key, err)
		}
	}
	return nil
}

// Edge registers a counting conversion copying the *Box payload.
func (c *Counter) Edge(r engine.Registrar, from, to engine.FormatKey) error {
	return r.RegisterConversion(from.Type, from.Format, to.Type, to.Format, func(src, dst any) error {
		c.Conversions[[2]engine.FormatKey{from, to}]++
		s, ok := src.(*Box)
		if !ok {
			return fmt.Errorf("source is %T", src)
		}
		d, ok := dst.(*Box)
		if !ok {
			return fmt.Errorf("target is %T", dst)
		}
		d.Value = s.Value
		d.Origin = s.Origin
		return nil
	})
}

// FailingEdge registers a conversion that always returns err.
func FailingEdge(r engine.Registrar, from, to engine.FormatKey, err error) error {
	return r.RegisterConversion(from.Type, from.Format, to.Type, to.Format, func(any, any) error {
		return err
	})
}

// Live returns constructions minus destructions for key.
func (c *Counter) Live(key engine.FormatKey) int {
	return c.Made[key] - c.Deleted[key]
}

// BoxType is the typed binding for a counting format.
func BoxType(typeName, format string) engine.Type[*Box] {
	return engine.NewType[*Box](typeName, format)
}
