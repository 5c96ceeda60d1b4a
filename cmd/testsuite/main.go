// Command testsuite runs the differential test suite of the C to
// WebAssembly compiler.
package main

import (
	"os"

	"github.com/martin-walls/wasm-testsuite/internal/cli"
)

func main() {
	err := cli.Execute(os.Args[1:])
	cli.PrintError(os.Stderr, err)
	os.Exit(cli.GetExitCode(err))
}
