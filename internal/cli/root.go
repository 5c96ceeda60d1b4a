package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/history"
	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// RootOptions holds global flags for all commands, plus the collaborators
// tests substitute.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	NoColor     bool
	Root        string
	TestsDir    string
	ProgramsDir string
	Timeout     string
	History     string

	// Lookup reads configuration variables. Nil reads the process
	// environment.
	Lookup config.Lookup

	// Runner executes subprocesses. Nil runs them for real.
	Runner process.Runner

	// IDs generates history run IDs. Nil generates UUIDv7s.
	IDs history.IDGenerator

	// Now is the clock used for run timestamps. Nil means time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the testsuite command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the testsuite command with argv, which excludes the program
// name.
func Execute(argv []string) error {
	return execute(NewRootCommand(), argv)
}

func execute(cmd *cobra.Command, argv []string) error {
	cmd.SetArgs(expandListFlags(argv))
	return cmd.Execute()
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := newSuiteCommand(opts)
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(ValidFormats, opts.Format) {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
		}
		return nil
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")
	pf.StringVar(&opts.Root, "root", "", "compiler project root (default $"+config.EnvProjectRoot+" or .)")
	pf.StringVar(&opts.TestsDir, "tests-dir", "", "directory holding test specs")
	pf.StringVar(&opts.ProgramsDir, "programs-dir", "", "directory spec sources are relative to")
	pf.StringVar(&opts.Timeout, "timeout", "", "per-subprocess timeout, e.g. 30s or 30 (default none)")
	pf.StringVar(&opts.History, "history", "", "SQLite database recording run history")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// loadConfig resolves the configuration from flags and the environment.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	overrides := config.Overrides{
		ProjectRoot: o.Root,
		TestsDir:    o.TestsDir,
		ProgramsDir: o.ProgramsDir,
		HistoryDB:   o.History,
	}
	if o.Timeout != "" {
		d, err := config.ParseTimeout(o.Timeout)
		if err != nil {
			return nil, &ExitError{Code: ExitCommandError, Kind: KindConfig, Message: "invalid --timeout", Err: err}
		}
		overrides.Timeout = &d
	}

	cfg, err := config.Load(overrides, o.Lookup)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Kind: KindConfig, Message: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// newLogger builds the command's structured logger. Operational logs go to
// w at Info, or Debug with --verbose.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *RootOptions) ids() history.IDGenerator {
	if o.IDs != nil {
		return o.IDs
	}
	return history.UUIDv7Generator{}
}
