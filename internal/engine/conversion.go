package engine

import "fmt"

// RegisterConversion adds the directed edge from -> to.
//
// The source (type, format) must already be registered; the target is only
// checked when a conversion is performed. Self edges are rejected.
//
// Registering an edge that already exists replaces it: the last
// registration wins. This lets a module specialize a conversion that a
// built-in or earlier module provided.
func (c *Context) RegisterConversion(fromType, fromFormat, toType, toFormat string, fn ConvertFunc) error {
	from := Key(fromType, fromFormat)
	to := Key(toType, toFormat)
	if fn == nil {
		return newError(CodeInvalidArgument, from, "conversion function must not be nil")
	}
	if to.Type == "" {
		return newError(CodeInvalidArgument, to, "conversion target type must not be empty")
	}
	if from == to {
		return newError(CodeInvalidArgument, from, "self conversion is not allowed")
	}

	tmpl, err := c.FormatTemplate(from)
	if err != nil {
		return err
	}

	prev, exists := tmpl.conversions[to]
	if exists {
		c.logger.Debug("conversion overridden", "from", from.String(), "to", to.String(), "module", c.loading)
		c.onRollback(func() { tmpl.conversions[to] = prev })
	} else {
		c.logger.Debug("conversion registered", "from", from.String(), "to", to.String(), "module", c.loading)
		c.onRollback(func() { delete(tmpl.conversions, to) })
	}
	tmpl.conversions[to] = fn
	return nil
}

// Convert fills to from from using the directly registered edge between
// their current representations. No multi-hop path search is performed.
func (c *Context) Convert(from, to *Data) error {
	fromKey, toKey := from.Key(), to.Key()
	fn, ok := from.tmpl.conversions[toKey]
	if !ok {
		c.observeConversion(fromKey, toKey, "missing")
		return &Error{
			Code:    CodeConversionNotRegistered,
			Message: fmt.Sprintf("no conversion from %s to %s", fromKey, toKey),
			Key:     toKey,
		}
	}

	if err := fn(from.Value(), to.Value()); err != nil {
		c.observeConversion(fromKey, toKey, "error")
		return &Error{
			Code:    CodeNotConvertible,
			Message: fmt.Sprintf("conversion from %s to %s failed", fromKey, toKey),
			Key:     toKey,
			Err:     err,
		}
	}

	c.observeConversion(fromKey, toKey, "ok")
	c.logger.Debug("converted data", "from", fromKey.String(), "to", toKey.String())
	return nil
}

// ConvertTo allocates a new (typeName, format) handle and converts from into
// it. The caller owns the result.
func (c *Context) ConvertTo(from *Data, typeName, format string) (*Data, error) {
	toKey := Key(typeName, format)
	if !from.tmpl.CanConvertTo(toKey) {
		c.observeConversion(from.Key(), toKey, "missing")
		return nil, &Error{
			Code:    CodeConversionNotRegistered,
			Message: fmt.Sprintf("no conversion from %s to %s", from.Key(), toKey),
			Key:     toKey,
		}
	}

	to, err := c.MakeData(toKey.Type, toKey.Format)
	if err != nil {
		return nil, err
	}
	if err := c.Convert(from, to); err != nil {
		to.drop()
		return nil, err
	}
	return to, nil
}

func (c *Context) observeConversion(from, to FormatKey, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.Conversions.WithLabelValues(from.String(), to.String(), status).Inc()
}
