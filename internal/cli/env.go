package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/modules"
	"github.com/roach88/vmesh/internal/pipeline"
)

// CLI error codes. Pipeline validation errors carry their own V1xx codes
// and engine errors their code name.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeParseFailed = "E006" // Pipeline document could not be decoded
	ErrCodeStoreFailed = "E008" // Journal could not be opened or read
	ErrCodePlugin      = "E009" // Plugin could not be loaded
)

// newContext builds a Context with the built-in modules and the given
// plugins loaded.
func newContext(logger *slog.Logger, plugins []string, opts ...engine.Option) (*engine.Context, error) {
	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	c := engine.New(opts...)

	if err := modules.LoadBuiltin(c); err != nil {
		_ = c.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load built-in modules", err)
	}
	for _, path := range plugins {
		logger.Debug("loading plugin", "path", path)
		if err := c.LoadPlugin(path); err != nil {
			_ = c.Close()
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: failed to load plugin %s", ErrCodePlugin, path), err)
		}
	}
	return c, nil
}

// validationErrors unpacks the errors a pipeline load produced: every
// structural error, or the single parse error.
func validationErrors(err error) []pipeline.ValidationError {
	var out []pipeline.ValidationError

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var ve pipeline.ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var pe *pipeline.ParseError
	if errors.As(err, &pe) {
		field := pe.Field
		if field == "" {
			field = "document"
		}
		if pe.Line > 0 {
			field = fmt.Sprintf("%s (line %d)", field, pe.Line)
		}
		return []pipeline.ValidationError{{File: pe.File, Field: field, Message: pe.Message, Code: ErrCodeParseFailed}}
	}

	var se *pipeline.StepError
	if errors.As(err, &se) {
		return []pipeline.ValidationError{{Field: "step." + se.Step, Message: se.Err.Error(), Code: engine.CodeOf(se.Err).String()}}
	}

	return []pipeline.ValidationError{{Field: "pipeline", Message: err.Error(), Code: ErrCodeGeneric}}
}
