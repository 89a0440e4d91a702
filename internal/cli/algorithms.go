package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vmesh/internal/engine"
)

// AlgorithmInfo describes one algorithm template.
type AlgorithmInfo struct {
	Name        string     `json:"name"`
	Module      string     `json:"module,omitempty"`
	Description string     `json:"description,omitempty"`
	Inputs      []SlotInfo `json:"inputs"`
	Outputs     []SlotInfo `json:"outputs"`
}

// SlotInfo describes one input or output slot.
type SlotInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewAlgorithmsCommand creates the algorithms command.
func NewAlgorithmsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "algorithms [name]",
		Short: "List algorithm templates and their slots",
		Long: `List the registered algorithm templates with their input and output
slots. A slot type of the form type[*] accepts every format of the type.

Examples:
  vmesh algorithms
  vmesh algorithms rect_mesher
  vmesh algorithms --plugin ./delaunay.so --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runAlgorithms(opts, name, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Plugins, "plugin", nil, "Go plugin to load (repeatable)")

	return cmd
}

func runAlgorithms(opts *ListOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	c, err := newContext(newLogger(opts.RootOptions, cmd.ErrOrStderr()), opts.Plugins)
	if err != nil {
		return err
	}
	defer c.Close()

	names := c.AlgorithmNames()
	if name != "" {
		names = []string{name}
	}

	algorithms := make([]AlgorithmInfo, 0, len(names))
	for _, n := range names {
		t, err := c.AlgorithmTemplate(n)
		if err != nil {
			code := engine.CodeOf(err).String()
			_ = formatter.Error(code, err.Error(), nil)
			return WrapExitError(ExitCommandError, code, err)
		}
		algorithms = append(algorithms, describeAlgorithm(t))
	}

	if opts.Format == "json" {
		return formatter.Success(algorithms)
	}

	w := cmd.OutOrStdout()
	for i, a := range algorithms {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := a.Name
		if a.Module != "" {
			header += " (" + a.Module + ")"
		}
		fmt.Fprintln(w, header)
		if a.Description != "" {
			fmt.Fprintf(w, "  %s\n", a.Description)
		}
		for _, in := range a.Inputs {
			fmt.Fprintf(w, "  in  %s\n", formatSlot(in))
		}
		for _, out := range a.Outputs {
			fmt.Fprintf(w, "  out %s\n", formatSlot(out))
		}
	}
	return nil
}

func describeAlgorithm(t *engine.AlgorithmTemplate) AlgorithmInfo {
	info := AlgorithmInfo{
		Name:        t.Name,
		Module:      t.Module(),
		Description: t.Description,
		Inputs:      make([]SlotInfo, 0, len(t.Inputs)),
		Outputs:     make([]SlotInfo, 0, len(t.Outputs)),
	}
	for _, p := range t.Inputs {
		info.Inputs = append(info.Inputs, SlotInfo{
			Name:        p.Name,
			Type:        slotType(p.Key()),
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		})
	}
	for _, o := range t.Outputs {
		info.Outputs = append(info.Outputs, SlotInfo{
			Name:        o.Name,
			Type:        slotType(o.Key()),
			Description: o.Description,
		})
	}
	return info
}

// slotType renders an untyped slot as "any".
func slotType(key engine.FormatKey) string {
	if key.IsZero() {
		return "any"
	}
	return key.String()
}

func formatSlot(s SlotInfo) string {
	line := s.Name + ": " + s.Type
	switch {
	case s.Required:
		line += " (required)"
	case s.Default != nil:
		line += fmt.Sprintf(" = %v", s.Default)
	}
	if s.Description != "" {
		line += "  # " + s.Description
	}
	return line
}
