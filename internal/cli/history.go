package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/martin-walls/wasm-testsuite/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded test runs",
		Long: `Show the runs recorded in the history database, newest first, or the
results of one run.

The database is set with --history or $TESTSUITE_HISTORY_DB.

Examples:
  testsuite history --history .testsuite/history.db
  testsuite history --limit 5
  testsuite history 0192f1c4-8a1e-7c2b-9d3e-5f6a7b8c9d0e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(cmd, opts, runID)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions, runID string) error {
	out := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return out.Fail(err)
	}
	if cfg.HistoryDB == "" {
		return out.Fail(&ExitError{
			Code:    ExitCommandError,
			Kind:    KindHistory,
			Message: "no history database configured (use --history or $TESTSUITE_HISTORY_DB)",
		})
	}
	if _, err := os.Stat(cfg.HistoryDB); err != nil {
		return out.Fail(&ExitError{Code: ExitCommandError, Kind: KindHistory, Message: "history database not found", Err: err})
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return out.Fail(&ExitError{Code: ExitCommandError, Kind: KindHistory, Message: "cannot open history", Err: err})
	}
	defer store.Close()

	ctx := cmd.Context()

	if runID != "" {
		run, err := store.GetRun(ctx, runID)
		if errors.Is(err, history.ErrRunNotFound) {
			return out.Fail(&ExitError{Code: ExitCommandError, Kind: KindHistory, Message: "unknown run", Err: err})
		}
		if err != nil {
			return out.Fail(&ExitError{Code: ExitCommandError, Kind: KindHistory, Message: "cannot read history", Err: err})
		}
		if out.JSON() {
			return out.Success(run)
		}
		return writeRun(cmd.OutOrStdout(), run)
	}

	runs, err := store.RecentRuns(ctx, opts.Limit)
	if err != nil {
		return out.Fail(&ExitError{Code: ExitCommandError, Kind: KindHistory, Message: "cannot read history", Err: err})
	}
	if out.JSON() {
		return out.Success(runs)
	}
	return writeRuns(cmd.OutOrStdout(), runs)
}

func writeRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tPASSED\tFAILED\tFILTER")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.Mode, r.Passed, r.Failed, r.Filter)
	}
	return tw.Flush()
}

func writeRun(w io.Writer, run history.Run) error {
	verdict := "all tests passed"
	if !run.AllPassed {
		verdict = fmt.Sprintf("%d of %d test(s) failed", run.Failed, run.Passed+run.Failed)
	}
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Mode)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt))
	if run.Filter != "" {
		fmt.Fprintf(w, "Filter:   %s\n", run.Filter)
	}
	fmt.Fprintf(w, "Verdict:  %s\n\n", verdict)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSTATUS\tKIND\tMESSAGE")
	for _, r := range run.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Seq, r.Name, r.Status, r.Kind, r.Message)
	}
	return tw.Flush()
}
