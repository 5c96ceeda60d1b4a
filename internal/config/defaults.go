package config

const (
	// DefaultProjectRoot is the compiler checkout the harness runs against.
	DefaultProjectRoot = "."
	// DefaultTestsDir holds the YAML test specs, relative to the project root.
	DefaultTestsDir = "tests"
	// DefaultProgramsDir holds the C sources referenced by specs.
	DefaultProgramsDir = "02-test-programs"
	// DefaultBuildDirName is created inside the tests directory for artifacts.
	DefaultBuildDirName = "build"
	// DefaultSpecExt is the extension of spec files.
	DefaultSpecExt = ".yaml"
	// DefaultCompilerPath is the debug build of the compiler under test.
	DefaultCompilerPath = "target/debug/c_to_wasm_compiler"
	// DefaultReferenceCompiler produces the native oracle executables.
	DefaultReferenceCompiler = "gcc"
	// DefaultRuntimePath runs a wasm module with node.
	DefaultRuntimePath = "runtime/run.mjs"
	// DefaultEnvFile is read from the project root when present.
	DefaultEnvFile = ".env"
)

// DefaultBuildCommand builds the compiler under test.
var DefaultBuildCommand = []string{"cargo", "build"}

// DefaultCompilerEnv is added to the compiler's environment.
var DefaultCompilerEnv = []string{"RUST_LOG=debug"}

// Environment variables consulted by Load.
const (
	EnvProjectRoot       = "TESTSUITE_ROOT"
	EnvTestsDir          = "TESTSUITE_TESTS_DIR"
	EnvProgramsDir       = "TESTSUITE_PROGRAMS_DIR"
	EnvBuildDir          = "TESTSUITE_BUILD_DIR"
	EnvBuildCommand      = "TESTSUITE_BUILD_CMD"
	EnvCompilerPath      = "TESTSUITE_COMPILER"
	EnvReferenceCompiler = "TESTSUITE_CC"
	EnvRuntimePath       = "TESTSUITE_RUNTIME"
	EnvTimeout           = "TESTSUITE_TIMEOUT"
	EnvHistoryDB         = "TESTSUITE_HISTORY_DB"
)
