// Package config builds the harness configuration once at start-up.
//
// Every directory and collaborator command the harness touches lives in a
// Config value that is passed explicitly into each component. Values are
// resolved with the precedence: command-line overrides, process
// environment, the project's .env file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xyproto/env/v2"
)

// Config holds all configuration for a harness invocation.
type Config struct {
	// ProjectRoot is the absolute path of the compiler checkout.
	ProjectRoot string

	// TestsDir holds the spec files.
	TestsDir string

	// ProgramsDir is the root that spec sources are relative to.
	ProgramsDir string

	// BuildDir receives native and target artifacts.
	BuildDir string

	// SpecExt is the file extension of spec files, including the dot.
	SpecExt string

	// BuildCommand builds the compiler under test. Runs in ProjectRoot.
	BuildCommand []string

	// CompilerPath is the compiler under test.
	CompilerPath string

	// ReferenceCompiler is the trusted native compiler.
	ReferenceCompiler string

	// RuntimePath executes target artifacts.
	RuntimePath string

	// CompilerEnv is appended to the environment of the compiler under test.
	CompilerEnv []string

	// Timeout bounds each subprocess. Zero means no limit.
	Timeout time.Duration

	// HistoryDB is the SQLite run history path. Empty disables history.
	HistoryDB string
}

// Overrides carries values supplied on the command line.
// Empty strings and a nil Timeout mean "not supplied".
type Overrides struct {
	ProjectRoot string
	TestsDir    string
	ProgramsDir string
	HistoryDB   string
	Timeout     *time.Duration
}

// Lookup returns the value of an environment variable, or fallback when unset.
type Lookup func(key, fallback string) string

// EnvLookup reads the process environment.
func EnvLookup() Lookup {
	return func(key, fallback string) string {
		return env.Str(key, fallback)
	}
}

// MapLookup serves variables from a fixed map. Used by tests.
func MapLookup(vars map[string]string) Lookup {
	return func(key, fallback string) string {
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		return fallback
	}
}

// New returns a Config populated with defaults for the given project root.
func New(projectRoot string) *Config {
	cfg := &Config{
		ProjectRoot:       projectRoot,
		SpecExt:           DefaultSpecExt,
		ReferenceCompiler: DefaultReferenceCompiler,
	}
	cfg.TestsDir = cfg.resolvePath(DefaultTestsDir)
	cfg.ProgramsDir = cfg.resolvePath(DefaultProgramsDir)
	cfg.BuildDir = filepath.Join(cfg.TestsDir, DefaultBuildDirName)
	cfg.BuildCommand = append([]string(nil), DefaultBuildCommand...)
	cfg.CompilerPath = cfg.resolveCommand(DefaultCompilerPath)
	cfg.RuntimePath = cfg.resolveCommand(DefaultRuntimePath)
	cfg.CompilerEnv = append([]string(nil), DefaultCompilerEnv...)
	return cfg
}

// Load builds the configuration from overrides, the environment and the
// project's .env file. A nil lookup reads the process environment.
func Load(o Overrides, lookup Lookup) (*Config, error) {
	if lookup == nil {
		lookup = EnvLookup()
	}

	root := o.ProjectRoot
	if root == "" {
		root = lookup(EnvProjectRoot, DefaultProjectRoot)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	dotenv, err := readDotEnv(filepath.Join(root, DefaultEnvFile))
	if err != nil {
		return nil, err
	}
	get := func(key, def string) string {
		if v, ok := dotenv[key]; ok && v != "" {
			def = v
		}
		return lookup(key, def)
	}

	cfg := New(root)

	cfg.TestsDir = cfg.resolvePath(firstNonEmpty(o.TestsDir, get(EnvTestsDir, DefaultTestsDir)))
	cfg.ProgramsDir = cfg.resolvePath(firstNonEmpty(o.ProgramsDir, get(EnvProgramsDir, DefaultProgramsDir)))
	cfg.BuildDir = cfg.resolvePath(get(EnvBuildDir, filepath.Join(cfg.TestsDir, DefaultBuildDirName)))

	cfg.BuildCommand = strings.Fields(get(EnvBuildCommand, strings.Join(DefaultBuildCommand, " ")))
	cfg.CompilerPath = cfg.resolveCommand(get(EnvCompilerPath, DefaultCompilerPath))
	cfg.ReferenceCompiler = cfg.resolveCommand(get(EnvReferenceCompiler, DefaultReferenceCompiler))
	cfg.RuntimePath = cfg.resolveCommand(get(EnvRuntimePath, DefaultRuntimePath))

	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	} else {
		cfg.Timeout, err = ParseTimeout(get(EnvTimeout, ""))
		if err != nil {
			return nil, err
		}
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}

	if history := firstNonEmpty(o.HistoryDB, get(EnvHistoryDB, "")); history != "" {
		cfg.HistoryDB = cfg.resolvePath(history)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every collaborator command is set.
func (c *Config) Validate() error {
	switch {
	case len(c.BuildCommand) == 0:
		return errors.New("build command is empty")
	case c.CompilerPath == "":
		return errors.New("compiler path is empty")
	case c.ReferenceCompiler == "":
		return errors.New("reference compiler is empty")
	case c.RuntimePath == "":
		return errors.New("runtime path is empty")
	case c.SpecExt == "":
		return errors.New("spec extension is empty")
	}
	return nil
}

// ParseTimeout accepts a Go duration ("90s", "2m") or a whole number of
// seconds. The empty string means no timeout.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}

// resolvePath makes p absolute, relative to the project root.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.ProjectRoot, p)
}

// resolveCommand resolves commands given as paths; bare names are left for
// a PATH lookup.
func (c *Config) resolveCommand(p string) string {
	if p == "" || !strings.ContainsRune(p, '/') && !strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return c.resolvePath(p)
}

func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
