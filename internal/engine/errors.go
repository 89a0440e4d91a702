package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes runtime errors.
//
// The integer values are the closed set surfaced at the module/algorithm
// boundary and must not be renumbered.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidArgument
	CodeTypeNotRegistered
	CodeFormatNotRegistered
	CodeAlgorithmNotRegistered
	CodeConversionNotRegistered
	CodeAlreadyRegistered
	CodeNotConvertible
	CodeMissingRequiredInput
	CodeInputConversionFailed
	CodeAlgorithmRunFailed
	CodeCyclicDependency
)

var codeNames = map[Code]string{
	CodeOK:                      "OK",
	CodeInvalidArgument:         "INVALID_ARGUMENT",
	CodeTypeNotRegistered:       "TYPE_NOT_REGISTERED",
	CodeFormatNotRegistered:     "FORMAT_NOT_REGISTERED",
	CodeAlgorithmNotRegistered:  "ALGORITHM_NOT_REGISTERED",
	CodeConversionNotRegistered: "CONVERSION_NOT_REGISTERED",
	CodeAlreadyRegistered:       "ALREADY_REGISTERED",
	CodeNotConvertible:          "NOT_CONVERTIBLE",
	CodeMissingRequiredInput:    "MISSING_REQUIRED_INPUT",
	CodeInputConversionFailed:   "INPUT_CONVERSION_FAILED",
	CodeAlgorithmRunFailed:      "ALGORITHM_RUN_FAILED",
	CodeCyclicDependency:        "CYCLIC_DEPENDENCY",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// ParseCode returns the code named name, as printed by String.
func ParseCode(name string) (Code, bool) {
	for c, n := range codeNames {
		if n == name {
			return c, true
		}
	}
	return CodeOK, false
}

// MarshalText renders the code by name, so journal records read as
// "error_code": "MISSING_REQUIRED_INPUT" in JSON.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (c *Code) UnmarshalText(text []byte) error {
	code, ok := ParseCode(string(text))
	if !ok {
		return fmt.Errorf("unknown error code %q", text)
	}
	*c = code
	return nil
}

// Error is the structured error returned by every registry, conversion and
// algorithm operation.
//
// Slot, Algorithm and Key are filled in whenever they are known so that a
// misconfigured pipeline can be diagnosed from the message alone.
type Error struct {
	Code    Code
	Message string

	// Algorithm is the template name of the algorithm involved, if any.
	Algorithm string

	// Slot is the parameter slot involved, if any.
	Slot string

	// Key is the (type, format) pair involved, if any.
	Key FormatKey

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	var attrs []string
	if e.Algorithm != "" {
		attrs = append(attrs, "algorithm="+e.Algorithm)
	}
	if e.Slot != "" {
		attrs = append(attrs, "slot="+e.Slot)
	}
	if !e.Key.IsZero() {
		attrs = append(attrs, "type="+e.Key.String())
	}
	if len(attrs) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(attrs, ", "))
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinels below work
// with errors.Is through arbitrary wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument         = &Error{Code: CodeInvalidArgument}
	ErrTypeNotRegistered       = &Error{Code: CodeTypeNotRegistered}
	ErrFormatNotRegistered     = &Error{Code: CodeFormatNotRegistered}
	ErrAlgorithmNotRegistered  = &Error{Code: CodeAlgorithmNotRegistered}
	ErrConversionNotRegistered = &Error{Code: CodeConversionNotRegistered}
	ErrAlreadyRegistered       = &Error{Code: CodeAlreadyRegistered}
	ErrNotConvertible          = &Error{Code: CodeNotConvertible}
	ErrMissingRequiredInput    = &Error{Code: CodeMissingRequiredInput}
	ErrInputConversionFailed   = &Error{Code: CodeInputConversionFailed}
	ErrAlgorithmRunFailed      = &Error{Code: CodeAlgorithmRunFailed}
	ErrCyclicDependency        = &Error{Code: CodeCyclicDependency}
)

// CodeOf returns the code of the outermost *Error in err's chain,
// CodeOK for nil and CodeAlgorithmRunFailed for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeAlgorithmRunFailed
}

func newError(code Code, key FormatKey, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Key:     key,
	}
}
