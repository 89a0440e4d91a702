package engine

import "fmt"

// Dispatch picks the representation of d a consumer works with.
//
// Each of variants is tried in order with an exact match; the first hit
// returns d itself. Otherwise d is converted once to fallback. This keeps
// the number of conversion functions linear in the number of formats
// instead of quadratic.
//
// The returned handle is owned by d (or is d); callers must not release it.
func Dispatch(d *Data, variants []FormatKey, fallback FormatKey) (*Data, error) {
	if d == nil {
		return nil, newError(CodeInvalidArgument, fallback, "nil data")
	}
	for _, v := range variants {
		if d.Is(v) {
			return d, nil
		}
	}
	conv, err := d.Converted(fallback)
	if err != nil {
		return nil, &Error{
			Code:    CodeNotConvertible,
			Message: fmt.Sprintf("%s matches none of %d variants and cannot be converted", d.Key(), len(variants)),
			Key:     fallback,
			Err:     err,
		}
	}
	return conv, nil
}
