// Package store provides the SQLite-backed run journal.
//
// Every finished algorithm run is appended as one row keyed by
// (session, seq). A session is one engine.Context; seq is its logical
// clock, so a session reads back in execution order regardless of wall
// time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Inputs and outputs are stored as JSON objects mapping slot name to the
// type[format] the data had, with keys sorted.
package store
