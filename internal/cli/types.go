package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vmesh/internal/engine"
)

// TypeInfo describes one binary format of a data type.
type TypeInfo struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Format      string   `json:"format"`
	Module      string   `json:"module,omitempty"`
	Conversions []string `json:"conversions"`
}

// ListOptions holds flags shared by the listing commands.
type ListOptions struct {
	*RootOptions
	Plugins []string
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List data types, formats and conversions",
		Long: `List every registered (type, format) pair with the module that
registered it and the formats it converts to directly.

Examples:
  vmesh types
  vmesh types --plugin ./delaunay.so --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Plugins, "plugin", nil, "Go plugin to load (repeatable)")

	return cmd
}

func runTypes(opts *ListOptions, cmd *cobra.Command) error {
	c, err := newContext(newLogger(opts.RootOptions, cmd.ErrOrStderr()), opts.Plugins)
	if err != nil {
		return err
	}
	defer c.Close()

	types, err := listTypes(c)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list types", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(types)
	}

	w := cmd.OutOrStdout()
	for _, t := range types {
		if t.Module != "" {
			fmt.Fprintf(w, "%s (%s)\n", t.Key, t.Module)
		} else {
			fmt.Fprintln(w, t.Key)
		}
		for _, to := range t.Conversions {
			fmt.Fprintf(w, "  -> %s\n", to)
		}
	}
	return nil
}

// listTypes walks the registry in sorted type and format order.
func listTypes(c *engine.Context) ([]TypeInfo, error) {
	var out []TypeInfo
	for _, name := range c.DataTypeNames() {
		dt, err := c.DataType(name)
		if err != nil {
			return nil, err
		}
		for _, format := range dt.Formats() {
			ft, err := dt.Format(format)
			if err != nil {
				return nil, err
			}
			info := TypeInfo{
				Key:         ft.Key().String(),
				Type:        name,
				Format:      format,
				Module:      ft.Module(),
				Conversions: []string{},
			}
			for _, to := range ft.Conversions() {
				info.Conversions = append(info.Conversions, to.String())
			}
			out = append(out, info)
		}
	}
	return out, nil
}
