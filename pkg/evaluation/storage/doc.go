// Package storage provides evaluation run store backends.
//
// Two backends implement evaluation.Store:
//
//   - MemoryStore keeps runs in a map. It is used by tests and by the CLI
//     when a run does not need to outlive the process.
//   - SQLiteStore persists runs in a SQLite database. It works with either
//     the cgo driver (github.com/mattn/go-sqlite3, driver name "sqlite3")
//     or the pure Go driver (modernc.org/sqlite, driver name "sqlite").
//
// Both backends enforce the run status state machine on every write.
// Finalize and Fail are single statements, so a reader never observes a
// run that is done without its results or index.
//
// # Schema
//
// SQLite stores one row per run. Results, index and trace are JSON text
// columns; timestamps are Unix nanoseconds so both drivers round-trip them
// identically.
package storage
