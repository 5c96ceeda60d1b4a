package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/discovery"
	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Specs      []*spec.TestSpec      `json:"specs"`
	Duplicates []discovery.Duplicate `json:"duplicates,omitempty"`
	Loaded     int                   `json:"loaded"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List test specs without building or running anything",
		Long: `Load every test spec and list those whose name contains the filter.

Every spec is validated, selected or not; an invalid spec fails the
command with exit code 2.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter string
			if len(args) == 1 {
				filter = args[0]
			}
			return runList(cmd, rootOpts, filter)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, opts *RootOptions, filter string) error {
	out := opts.formatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return out.Fail(err)
	}

	res, err := discovery.Collect(cfg.TestsDir, cfg.SpecExt, cfg.ProgramsDir, filter, logger)
	if err != nil {
		return out.Fail(err)
	}
	for _, d := range res.Duplicates {
		logger.Warn("duplicate test name", "name", d.Name, "first", d.First, "second", d.Second)
	}

	if out.JSON() {
		specs := res.Specs
		if specs == nil {
			specs = []*spec.TestSpec{}
		}
		return out.Success(ListResult{Specs: specs, Duplicates: res.Duplicates, Loaded: res.Loaded})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tARGS")
	for _, s := range res.Specs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, displaySource(cfg, s.Source), strings.Join(s.Args, " "))
	}
	if err := w.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d spec(s) selected\n", len(res.Specs), res.Loaded)
	return nil
}

// displaySource shows source relative to the programs directory when it
// lies inside it.
func displaySource(cfg *config.Config, source string) string {
	rel, err := filepath.Rel(cfg.ProgramsDir, source)
	if err != nil || strings.HasPrefix(rel, "..") {
		return source
	}
	return rel
}
