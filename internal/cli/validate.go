package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vmesh/internal/pipeline"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Plugins []string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Pipeline string                     `json:"pipeline,omitempty"`
	Steps    int                        `json:"steps,omitempty"`
	Errors   []pipeline.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Validate a pipeline without running it",
		Long: `Validate a pipeline file without running it.

The document is parsed and checked structurally, then instantiated against
the registries of a Context with the built-in modules and plugins loaded,
which checks algorithm names, slot names and literal types. Nothing runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Plugins, "plugin", nil, "Go plugin to load (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("pipeline not found: %s", path), nil)
	}

	p, err := pipeline.LoadFile(path)
	if err != nil {
		return outputValidationErrors(formatter, validationErrors(err))
	}
	formatter.VerboseLog("Parsed pipeline %s with %d step(s)", p.Name, len(p.Steps))

	c, err := newContext(newLogger(opts.RootOptions, formatter.GetErrWriter()), opts.Plugins)
	if err != nil {
		return err
	}
	defer c.Close()

	b, err := pipeline.Instantiate(c, p)
	if err != nil {
		return outputValidationErrors(formatter, validationErrors(err))
	}
	b.Release()

	return outputValidateSuccess(formatter, p)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, p *pipeline.Pipeline) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Pipeline: p.Name, Steps: len(p.Steps)})
	}

	fmt.Fprintf(formatter.Writer, "✓ Pipeline %s valid (%d steps)\n", p.Name, len(p.Steps))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []pipeline.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.File != "" {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
