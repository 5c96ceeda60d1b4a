package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/process"
	"github.com/martin-walls/wasm-testsuite/internal/testutil"
)

// project is a throwaway compiler checkout whose subprocesses are scripted.
//
// Native and target runs print "<name>:<args>" unless the test overrides
// the target's output.
type project struct {
	t      *testing.T
	root   string
	runner *testutil.ScriptedRunner
	ids    *testutil.FixedIDGenerator
	clock  *testutil.DeterministicClock

	mu           sync.Mutex
	buildExit    int
	compileExit  map[string]int
	targetStdout map[string]string
	targetErr    map[string]error
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{
		t:            t,
		root:         t.TempDir(),
		ids:          testutil.NewFixedIDGenerator("run"),
		clock:        testutil.NewDeterministicClock(),
		compileExit:  map[string]int{},
		targetStdout: map[string]string{},
		targetErr:    map[string]error{},
	}
	p.runner = &testutil.ScriptedRunner{Handler: p.handle}
	require.NoError(t, os.MkdirAll(filepath.Join(p.root, config.DefaultTestsDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(p.root, config.DefaultProgramsDir), 0o755))
	return p
}

func (p *project) handle(c process.Command) (process.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch base := filepath.Base(c.Path); {
	case c.Path == "cargo":
		return process.Result{ExitCode: p.buildExit}, nil
	case c.Path == "gcc":
		return process.Result{}, nil
	case strings.HasSuffix(base, ".gcc"):
		name := strings.TrimSuffix(base, ".gcc")
		return process.Result{Stdout: programOutput(name, c.Args)}, nil
	case base == filepath.Base(config.DefaultCompilerPath):
		name := strings.TrimSuffix(filepath.Base(c.Args[2]), ".wasm")
		if code := p.compileExit[name]; code != 0 {
			return process.Result{Stderr: "error: unsupported construct", ExitCode: code}, nil
		}
		return process.Result{}, nil
	case base == filepath.Base(config.DefaultRuntimePath):
		name := strings.TrimSuffix(filepath.Base(c.Args[0]), ".wasm")
		if err := p.targetErr[name]; err != nil {
			return process.Result{Stdout: "partial\n", ExitCode: -1}, err
		}
		if out, ok := p.targetStdout[name]; ok {
			return process.Result{Stdout: out}, nil
		}
		return process.Result{Stdout: programOutput(name, c.Args[1:])}, nil
	}
	return process.Result{}, fmt.Errorf("unexpected command %s", c)
}

func programOutput(name string, args []string) string {
	return name + ":" + strings.Join(args, ",") + "\n"
}

// addSpec writes a spec and its C source.
func (p *project) addSpec(name string, args ...string) {
	p.t.Helper()
	source := name + ".c"
	require.NoError(p.t, os.WriteFile(filepath.Join(p.root, config.DefaultProgramsDir, source), []byte("int main(void) { return 0; }\n"), 0o644))

	doc := fmt.Sprintf("name: %s\nsource: %s\n", name, source)
	if len(args) > 0 {
		doc += "args: [" + strings.Join(args, ", ") + "]\n"
	}
	p.writeSpec(name, doc)
}

func (p *project) writeSpec(file, doc string) {
	p.t.Helper()
	require.NoError(p.t, os.WriteFile(filepath.Join(p.root, config.DefaultTestsDir, file+".yaml"), []byte(doc), 0o644))
}

func (p *project) failCompile(name string, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.compileExit[name] = code
}

func (p *project) setTargetStdout(name, out string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetStdout[name] = out
}

func (p *project) failTarget(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetErr[name] = err
}

func (p *project) setBuildExit(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buildExit = code
}

func (p *project) historyPath() string {
	return filepath.Join(p.root, ".testsuite", "history.db")
}

// execute runs the testsuite command with a fresh set of options. Colour
// is always off so output can be matched literally.
func (p *project) execute(args ...string) (string, string, error) {
	p.t.Helper()
	opts := &RootOptions{
		Lookup: config.MapLookup(map[string]string{config.EnvProjectRoot: p.root}),
		Runner: p.runner,
		IDs:    p.ids,
		Now:    p.clock.Now,
	}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := execute(cmd, append([]string{"--no-color"}, args...))
	return stdout.String(), stderr.String(), err
}

// callsTo returns the recorded commands whose base name is base.
func (p *project) callsTo(base string) []process.Command {
	var out []process.Command
	for _, c := range p.runner.Calls() {
		if filepath.Base(c.Path) == base {
			out = append(out, c)
		}
	}
	return out
}
