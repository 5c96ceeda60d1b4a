// Package history records finished batches in a SQLite database so that
// verdicts can be compared across compiler changes.
//
// Each batch is one row in runs; each evaluated test is one row in results,
// carrying the spec fingerprint and the digest of the target artifact. A
// run and its results are written in a single transaction.
//
// # Database Configuration
//
//   - WAL mode: readers (the history command) do not block a writing batch
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package history
