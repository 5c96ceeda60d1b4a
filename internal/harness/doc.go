// Package harness runs differential tests.
//
// A batch (RunAll) discovers and loads every spec, builds the compiler under
// test once, then evaluates each selected spec in discovery order:
//
//  1. compile the source with the reference compiler
//  2. run the native artifact
//  3. compile the source with the compiler under test
//  4. run the target artifact in the runtime
//  5. compare exit code and stdout
//
// The first failing stage ends that test; the batch carries on with the
// next one. Only run-fatal conditions (an invalid spec, a failed build)
// are returned as errors.
//
// Interactive mode (RunProgram) skips the reference side entirely: it
// compiles with the compiler under test, runs the target and shows its
// raw output.
package harness
