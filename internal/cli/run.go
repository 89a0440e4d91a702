package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/metric"
	"github.com/roach88/vmesh/internal/pipeline"
	"github.com/roach88/vmesh/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Plugins  []string
	Chain    bool
	Metrics  string

	// IDGenerator allows overriding instance and session IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunResult is the output of one pipeline run.
type RunResult struct {
	Pipeline string       `json:"pipeline"`
	Session  string       `json:"session"`
	Status   string       `json:"status"`
	Steps    []StepResult `json:"steps"`
}

// StepResult is the state of one step after the run.
type StepResult struct {
	Name      string         `json:"name"`
	Algorithm string         `json:"algorithm"`
	State     string         `json:"state"`
	Error     string         `json:"error,omitempty"`
	Outputs   []OutputResult `json:"outputs,omitempty"`
}

// OutputResult describes one output. Value is set for the built-in scalar
// types only.
type OutputResult struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline",
		Long: `Run a pipeline file (.yaml, .cue or .hcl).

A Context is created with the built-in mesh modules and any plugins given
with --plugin. Every step becomes an algorithm instance; steps run in
declaration order and the run stops at the first failure. The outputs of
every step are printed.

With --db, each algorithm run is journaled to a SQLite database under a
fresh session ID, which "vmesh trace" reads back.

Examples:
  vmesh run ./pipelines/rect.yaml
  vmesh run --db ./runs.db --plugin ./delaunay.so ./pipelines/rect.hcl
  vmesh run --chain --format json ./pipelines/rect.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run journal")
	cmd.Flags().StringArrayVar(&opts.Plugins, "plugin", nil, "Go plugin to load (repeatable)")
	cmd.Flags().BoolVar(&opts.Chain, "chain", false, "chain every step to the previous one as default source")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write runtime metrics in Prometheus text format to this file")

	return cmd
}

func runPipeline(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("pipeline not found: %s", path), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: pipeline not found: %s", ErrCodeNotFound, path))
	}

	p, err := pipeline.LoadFile(path)
	if err != nil {
		return outputValidationErrors(formatter, validationErrors(err))
	}
	if opts.Chain {
		p.Chain = true
	}

	engineOpts := []engine.Option{}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}

	if opts.Database != "" {
		logger.Debug("opening journal", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		engineOpts = append(engineOpts, engine.WithJournal(st))
	}

	var reg *prometheus.Registry
	if opts.Metrics != "" {
		reg = prometheus.NewRegistry()
		m, err := metric.New(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		engineOpts = append(engineOpts, engine.WithMetrics(m))
	}

	c, err := newContext(logger, opts.Plugins, engineOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Error("error closing context", "error", closeErr)
		}
	}()

	b, err := pipeline.Instantiate(c, p)
	if err != nil {
		return outputValidationErrors(formatter, validationErrors(err))
	}
	defer b.Release()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := b.Run(ctx)

	result := collectRun(c.Session(), b, runErr)

	if reg != nil {
		if err := prometheus.WriteToTextfile(opts.Metrics, reg); err != nil {
			logger.Warn("failed to write metrics", "path", opts.Metrics, "error", err)
		}
	}

	if runErr != nil {
		if formatter.Format == "json" {
			if err := formatter.ErrorWithData(engine.CodeOf(runErr).String(), runErr.Error(), result); err != nil {
				return err
			}
		} else {
			writeRunText(formatter.Writer, result)
		}
		return WrapExitError(ExitFailure, "pipeline failed", runErr)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeRunText(formatter.Writer, result)
	return nil
}

func collectRun(session string, b *pipeline.Build, runErr error) RunResult {
	result := RunResult{
		Pipeline: b.Pipeline.Name,
		Session:  session,
		Status:   engine.StatusSucceeded,
	}
	if runErr != nil {
		result.Status = engine.StatusFailed
	}

	for _, inst := range b.Instances() {
		step := StepResult{
			Name:      inst.Name(),
			Algorithm: inst.Template().Name,
			State:     inst.State().String(),
		}
		if err := inst.Err(); err != nil {
			step.Error = err.Error()
		}
		for _, name := range inst.OutputNames() {
			d, _ := inst.Output(name)
			step.Outputs = append(step.Outputs, OutputResult{
				Name:  name,
				Type:  d.Key().String(),
				Value: scalarValue(d),
			})
		}
		result.Steps = append(result.Steps, step)
	}
	return result
}

// scalarValue returns the value of a built-in scalar handle, nil otherwise.
func scalarValue(d *engine.Data) any {
	switch {
	case engine.IsType(d, engine.Int):
		v, _ := engine.Get(d, engine.Int)
		return *v
	case engine.IsType(d, engine.Double):
		v, _ := engine.Get(d, engine.Double)
		return *v
	case engine.IsType(d, engine.Bool):
		v, _ := engine.Get(d, engine.Bool)
		return *v
	case engine.IsType(d, engine.String):
		v, _ := engine.Get(d, engine.String)
		return *v
	default:
		return nil
	}
}

func writeRunText(w io.Writer, result RunResult) {
	mark := "✓"
	if result.Status == engine.StatusFailed {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s %s (session %s)\n", mark, result.Pipeline, result.Status, result.Session)

	for _, step := range result.Steps {
		fmt.Fprintf(w, "\n%s (%s): %s\n", step.Name, step.Algorithm, step.State)
		if step.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", step.Error)
		}
		for _, out := range step.Outputs {
			if out.Value != nil {
				fmt.Fprintf(w, "  %s: %s = %v\n", out.Name, out.Type, out.Value)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", out.Name, out.Type)
			}
		}
	}
}
