package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Algorithm string // optional - filter to one algorithm
}

// TraceResult holds the runs of one session.
type TraceResult struct {
	Session string             `json:"session"`
	Runs    []engine.RunRecord `json:"runs"`
	Stats   TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the session.
type TraceStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JournalSummary lists the sessions of a journal and per-algorithm counts.
type JournalSummary struct {
	Sessions   []string                 `json:"sessions"`
	Algorithms []store.AlgorithmSummary `json:"algorithms"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [session]",
		Short: "Show the journaled runs of a session",
		Long: `Show the algorithm runs journaled by "vmesh run --db".

With a session ID, prints every run of that session in order: the step,
its algorithm, the status and the representation of every input and
output slot. Without one, lists the sessions in the journal and run
counts per algorithm.

Examples:
  vmesh trace --db ./runs.db
  vmesh trace --db ./runs.db 0191b7a2-...
  vmesh trace --db ./runs.db 0191b7a2-... --algorithm mesh_stats --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runJournalSummary(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Algorithm, "algorithm", "", "filter to one algorithm")

	return cmd
}

func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeNotFound, path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStoreFailed+": failed to open database", err)
	}
	return st, nil
}

func runTrace(opts *TraceOptions, session string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ReadSession(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": failed to read session", err)
	}

	result := TraceResult{Session: session, Runs: []engine.RunRecord{}}
	for _, rec := range records {
		if opts.Algorithm != "" && rec.Algorithm != opts.Algorithm {
			continue
		}
		result.Runs = append(result.Runs, rec)
		result.Stats.Total++
		if rec.Status == engine.StatusSucceeded {
			result.Stats.Succeeded++
		} else {
			result.Stats.Failed++
		}
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(w, "No runs found for session: %s\n", session)
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n\n", session)
	for _, rec := range result.Runs {
		mark := "✓"
		if rec.Status != engine.StatusSucceeded {
			mark = "✗"
		}
		name := rec.Name
		if name == "" {
			name = rec.InstanceID
		}
		fmt.Fprintf(w, "[%d] %s %s (%s)\n", rec.Seq, mark, name, rec.Algorithm)
		if rec.Status != engine.StatusSucceeded {
			fmt.Fprintf(w, "    error: %s: %s\n", rec.ErrorCode, rec.ErrorMessage)
		}
		if len(rec.Inputs) > 0 {
			fmt.Fprintf(w, "    in:  %s\n", formatSlotMap(rec.Inputs))
		}
		if len(rec.Outputs) > 0 {
			fmt.Fprintf(w, "    out: %s\n", formatSlotMap(rec.Outputs))
		}
		if opts.Verbose {
			fmt.Fprintf(w, "    duration: %s\n", rec.Duration)
		}
	}

	fmt.Fprintf(w, "\n%d run(s): %d succeeded, %d failed\n",
		result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed)
	return nil
}

func runJournalSummary(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": failed to list sessions", err)
	}
	summary, err := st.Summary(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": failed to summarize journal", err)
	}
	if sessions == nil {
		sessions = []string{}
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(JournalSummary{Sessions: sessions, Algorithms: summary})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return nil
	}
	fmt.Fprintln(w, "Sessions:")
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintln(w, "\nAlgorithms:")
	for _, a := range summary {
		fmt.Fprintf(w, "  %s: %d succeeded, %d failed\n", a.Algorithm, a.Succeeded, a.Failed)
	}
	return nil
}

// formatSlotMap renders slot -> type pairs in slot order.
func formatSlotMap(slots map[string]string) string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + slots[name]
	}
	return strings.Join(parts, " ")
}
